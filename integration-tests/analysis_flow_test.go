package integration_tests

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/twintipsolutions/cough-backend/internal/audit"
	"github.com/twintipsolutions/cough-backend/internal/auth"
	"github.com/twintipsolutions/cough-backend/internal/azure"
	"github.com/twintipsolutions/cough-backend/internal/handler"
	"github.com/twintipsolutions/cough-backend/internal/observability"
	"github.com/twintipsolutions/cough-backend/internal/repository"
	"github.com/twintipsolutions/cough-backend/internal/service"
	"github.com/twintipsolutions/cough-backend/pkg/model"
)

// scriptedInvoker replays canned replies instead of calling Azure OpenAI.
type scriptedInvoker struct {
	reply string
	calls int
}

func (s *scriptedInvoker) Invoke(_ context.Context, _ []openai.ChatCompletionMessageParamUnion) (*service.Invocation, error) {
	s.calls++
	return &service.Invocation{Tier: service.TierPrimary, Model: "gpt-scripted", Text: s.reply}, nil
}

type testEnv struct {
	router   *gin.Engine
	verifier *auth.TokenVerifier
	invoker  *scriptedInvoker
	archive  *azure.MockBlobStorageClient
	pool     *pgxpool.Pool
}

func setupTestEnv(t *testing.T) (*testEnv, func()) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	logger := zap.NewNop()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("cough_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	connString, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err)

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS analyses (
			id UUID PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			ts BIGINT NOT NULL,
			results JSONB NOT NULL,
			insights JSONB NOT NULL,
			metadata TEXT,
			metadata_encrypted BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_user_ts ON analyses (user_id, ts DESC)`,
		`CREATE TABLE IF NOT EXISTS user_profiles (
			user_id VARCHAR(255) PRIMARY KEY,
			total_analyses BIGINT NOT NULL DEFAULT 0,
			last_analysis_at BIGINT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id BIGSERIAL PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			operation_type VARCHAR(50) NOT NULL,
			resource_type VARCHAR(50) NOT NULL,
			resource_id VARCHAR(255),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			additional_data JSONB
		)`,
	}
	for _, migration := range migrations {
		_, err := pool.Exec(ctx, migration)
		require.NoError(t, err)
	}

	// Empty key path generates an ephemeral pair so tests can mint tokens.
	verifier, err := auth.NewTokenVerifier("", logger)
	require.NoError(t, err)

	metrics := observability.NewMetrics()
	auditLogger := audit.NewLogger(pool, logger)
	repo := repository.NewAnalysisRepository(pool, nil, logger)
	archive := azure.NewMockBlobStorageClient(logger)
	invoker := &scriptedInvoker{}

	analysisService := service.NewAnalysisService(
		repo,
		invoker,
		service.NewNormalizer(metrics, logger),
		archive,
		auditLogger,
		metrics,
		service.AnalysisOptions{
			ShortClipFloorSeconds: 0.5,
			HistoryDefaultLimit:   10,
			HistoryMaxLimit:       100,
			RetainAudio:           true,
		},
		logger,
	)

	analysisHandler := handler.NewAnalysisHandler(analysisService, logger)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(auth.Middleware(verifier, logger))
	api.POST("/analysis", analysisHandler.PostAnalysis)
	api.POST("/history", analysisHandler.PostHistory)
	api.DELETE("/analysis/:id", analysisHandler.DeleteAnalysis)

	env := &testEnv{
		router:   router,
		verifier: verifier,
		invoker:  invoker,
		archive:  archive,
		pool:     pool,
	}

	cleanup := func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return env, cleanup
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// TestAnalysisFlowIntegration runs the full analyze, history, delete cycle
// against a real database.
func TestAnalysisFlowIntegration(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	ctx := context.Background()
	userID := uuid.New().String()
	token, err := env.verifier.IssueToken(userID, time.Hour)
	require.NoError(t, err)

	audioData := base64.StdEncoding.EncodeToString([]byte("pretend this is an m4a clip"))

	t.Run("Analyze a clip", func(t *testing.T) {
		env.invoker.reply = `{"results":{"coughType":"dry","severity":"mild","characteristics":["scratchy"],"potentialCauses":[{"condition":"Post-viral Cough","likelihood":"medium","description":"Common after infections"}],"managementApproaches":["Stay hydrated"],"urgency":"routine","confidence":0.82},"insights":{"soundPattern":"dry hacking","frequency":"single","duration":"2.4s","additionalNotes":[]}}`

		w := env.do(t, http.MethodPost, "/api/v1/analysis", token, map[string]any{
			"userId":      userID,
			"audioData":   audioData,
			"audioFormat": "m4a",
			"duration":    2.4,
			"metadata":    map[string]any{"symptoms": "sore throat"},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var result model.AnalysisResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.NotEmpty(t, result.AnalysisID)
		assert.Equal(t, model.CoughTypeDry, result.Results.CoughType)
		assert.Equal(t, 0.82, result.Results.Confidence)

		// Audio is archived when retention is on.
		assert.Len(t, env.archive.Storage, 1)

		// Profile counter reflects the stored analysis.
		var total int64
		require.NoError(t, env.pool.QueryRow(ctx,
			`SELECT total_analyses FROM user_profiles WHERE user_id = $1`, userID,
		).Scan(&total))
		assert.Equal(t, int64(1), total)

		// Audit trail records the creation.
		var auditCount int
		require.NoError(t, env.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM audit_logs WHERE user_id = $1 AND operation_type = 'CREATE'`, userID,
		).Scan(&auditCount))
		assert.Equal(t, 1, auditCount)
	})

	t.Run("Short clip skips the model", func(t *testing.T) {
		callsBefore := env.invoker.calls

		w := env.do(t, http.MethodPost, "/api/v1/analysis", token, map[string]any{
			"userId":      userID,
			"audioData":   audioData,
			"audioFormat": "m4a",
			"duration":    0.2,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var result model.AnalysisResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, model.CoughTypeNone, result.Results.CoughType)
		assert.Equal(t, 1.0, result.Results.Confidence)
		assert.Equal(t, "0.2 seconds", result.Insights.Duration)
		assert.Equal(t, callsBefore, env.invoker.calls)
	})

	t.Run("History returns newest first", func(t *testing.T) {
		// An empty body asks for the default page size; the caller is
		// identified by the token alone.
		w := env.do(t, http.MethodPost, "/api/v1/history", token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			History []model.StoredAnalysis `json:"history"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.History, 2)
		assert.GreaterOrEqual(t, resp.History[0].Timestamp, resp.History[1].Timestamp)
		assert.Equal(t, map[string]any{"symptoms": "sore throat"}, resp.History[1].Metadata)
	})

	t.Run("History is caller scoped", func(t *testing.T) {
		otherID := uuid.New().String()
		otherToken, err := env.verifier.IssueToken(otherID, time.Hour)
		require.NoError(t, err)

		w := env.do(t, http.MethodPost, "/api/v1/history", otherToken, map[string]any{
			"limit": 10,
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			History []model.StoredAnalysis `json:"history"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Empty(t, resp.History)
	})

	t.Run("Cross-user request is rejected without side effects", func(t *testing.T) {
		otherID := uuid.New().String()

		w := env.do(t, http.MethodPost, "/api/v1/analysis", token, map[string]any{
			"userId":      otherID,
			"audioData":   audioData,
			"audioFormat": "m4a",
			"duration":    2.0,
		})
		require.Equal(t, http.StatusForbidden, w.Code)

		var count int
		require.NoError(t, env.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM analyses WHERE user_id = $1`, otherID,
		).Scan(&count))
		assert.Zero(t, count)
	})

	t.Run("Requests without a token are rejected", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/history", "", map[string]any{"limit": 5})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Delete removes one analysis", func(t *testing.T) {
		var analysisID string
		require.NoError(t, env.pool.QueryRow(ctx,
			`SELECT id FROM analyses WHERE user_id = $1 ORDER BY ts ASC LIMIT 1`, userID,
		).Scan(&analysisID))

		w := env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/analysis/%s", analysisID), token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		// Deleting again reports not-found.
		w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/analysis/%s", analysisID), token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		var remaining int
		require.NoError(t, env.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM analyses WHERE user_id = $1`, userID,
		).Scan(&remaining))
		assert.Equal(t, 1, remaining)
	})
}
