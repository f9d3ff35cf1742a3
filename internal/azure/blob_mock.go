package azure

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// MockBlobStorageClient is an in-memory implementation of BlobStorage for testing
type MockBlobStorageClient struct {
	Storage map[string][]byte
	mu      sync.RWMutex
	logger  *zap.Logger

	FailUploads bool
}

// NewMockBlobStorageClient creates a new mock blob storage client
func NewMockBlobStorageClient(logger *zap.Logger) *MockBlobStorageClient {
	return &MockBlobStorageClient{
		Storage: make(map[string][]byte),
		logger:  logger,
	}
}

// UploadAudio stores a clip in the in-memory map
func (c *MockBlobStorageClient) UploadAudio(ctx context.Context, blobName string, data []byte, contentType string, metadata map[string]string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.FailUploads {
		return "", fmt.Errorf("mock: upload failure")
	}

	c.Storage[blobName] = data

	if c.logger != nil {
		c.logger.Info("mock: audio uploaded",
			zap.String("blob_name", blobName),
			zap.Int("size_bytes", len(data)),
		)
	}

	return blobName, nil
}

// DeleteAudio removes a clip from the in-memory map
func (c *MockBlobStorageClient) DeleteAudio(ctx context.Context, blobName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.Storage[blobName]; !ok {
		return fmt.Errorf("mock: blob not found: %s", blobName)
	}
	delete(c.Storage, blobName)
	return nil
}

// Ensure MockBlobStorageClient implements BlobStorage interface
var _ BlobStorage = (*MockBlobStorageClient)(nil)
