// Command test-clients exercises the Azure dependencies with real
// credentials. Useful when rotating keys or bringing up a new environment.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"

	"github.com/twintipsolutions/cough-backend/internal/azure"
)

func main() {
	// Initialize logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Get credentials from environment
	openaiEndpoint := os.Getenv("AZURE_OPENAI_ENDPOINT")
	openaiKey := os.Getenv("AZURE_OPENAI_KEY")
	openaiDeployment := os.Getenv("AZURE_OPENAI_DEPLOYMENT")

	fallbackEndpoint := os.Getenv("AZURE_OPENAI_FALLBACK_ENDPOINT")
	fallbackKey := os.Getenv("AZURE_OPENAI_FALLBACK_KEY")
	fallbackDeployment := os.Getenv("AZURE_OPENAI_FALLBACK_DEPLOYMENT")

	storageAccountName := os.Getenv("AZURE_STORAGE_ACCOUNT_NAME")
	storageAccountKey := os.Getenv("AZURE_STORAGE_ACCOUNT_KEY")

	if openaiEndpoint == "" || openaiKey == "" || openaiDeployment == "" {
		logger.Fatal("Missing Azure OpenAI credentials. Set AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_KEY, and AZURE_OPENAI_DEPLOYMENT")
	}

	ctx := context.Background()

	// Test 1: primary model deployment
	logger.Info("=== Testing primary Azure OpenAI deployment ===")
	if err := testOpenAIClient(ctx, openaiEndpoint, openaiKey, openaiDeployment, logger); err != nil {
		logger.Error("Primary OpenAI client test failed", zap.Error(err))
	} else {
		logger.Info("✅ Primary OpenAI client test passed")
	}

	// Test 2: fallback model deployment, skipped when not configured
	if fallbackEndpoint != "" && fallbackKey != "" && fallbackDeployment != "" {
		logger.Info("=== Testing fallback Azure OpenAI deployment ===")
		if err := testOpenAIClient(ctx, fallbackEndpoint, fallbackKey, fallbackDeployment, logger); err != nil {
			logger.Error("Fallback OpenAI client test failed", zap.Error(err))
		} else {
			logger.Info("✅ Fallback OpenAI client test passed")
		}
	} else {
		logger.Info("Fallback deployment not configured, skipping")
	}

	// Test 3: blob storage for audio retention, skipped when not configured
	if storageAccountName != "" && storageAccountKey != "" {
		logger.Info("=== Testing Azure Blob Storage client ===")
		if err := testBlobStorageClient(ctx, storageAccountName, storageAccountKey, logger); err != nil {
			logger.Error("Blob storage client test failed", zap.Error(err))
		} else {
			logger.Info("✅ Blob storage client test passed")
		}
	} else {
		logger.Info("Storage account not configured, skipping")
	}

	logger.Info("=== All tests completed ===")
}

func testOpenAIClient(ctx context.Context, endpoint, apiKey, deployment string, logger *zap.Logger) error {
	client, err := azure.NewOpenAIClient(endpoint, apiKey, deployment, logger)
	if err != nil {
		return fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("You are a helpful assistant."),
		openai.UserMessage("Reply with the single word 'pong'."),
	}

	response, err := client.Complete(ctx, messages, azure.CompletionOptions{
		Temperature:     0.0,
		TopP:            1.0,
		MaxOutputTokens: 16,
	})
	if err != nil {
		return fmt.Errorf("chat completion failed: %w", err)
	}

	logger.Info("OpenAI response received",
		zap.String("deployment", deployment),
		zap.String("response", response),
	)

	return nil
}

func testBlobStorageClient(ctx context.Context, accountName, accountKey string, logger *zap.Logger) error {
	client, err := azure.NewBlobStorageClient(accountName, accountKey, "cough-recordings", logger)
	if err != nil {
		return fmt.Errorf("failed to create blob storage client: %w", err)
	}

	blobName := fmt.Sprintf("smoke-test/%d.txt", time.Now().UnixMilli())
	url, err := client.UploadAudio(ctx, blobName, []byte("connectivity check"), "text/plain", map[string]string{
		"purpose": "smoke-test",
	})
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	logger.Info("Blob uploaded", zap.String("url", url))

	if err := client.DeleteAudio(ctx, blobName); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	logger.Info("Blob deleted", zap.String("blob_name", blobName))

	return nil
}
