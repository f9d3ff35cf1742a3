package audit

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// OperationType represents the type of operation performed
type OperationType string

const (
	OperationCreate OperationType = "CREATE"
	OperationDelete OperationType = "DELETE"
	OperationRead   OperationType = "READ"
)

// ResourceType represents the type of resource being accessed
type ResourceType string

const (
	ResourceAnalysis    ResourceType = "analysis"
	ResourceUserProfile ResourceType = "user_profile"
)

// Entry represents an audit log entry
type Entry struct {
	UserID         string
	OperationType  OperationType
	ResourceType   ResourceType
	ResourceID     string
	Timestamp      time.Time
	AdditionalData map[string]any
}

// Logger persists audit entries for analysis record lifecycle events.
// Audit writes are best-effort bookkeeping: callers log failures and move on.
type Logger struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewLogger creates a new audit logger
func NewLogger(db *pgxpool.Pool, logger *zap.Logger) *Logger {
	return &Logger{
		db:     db,
		logger: logger,
	}
}

// Log creates an audit log entry. A nil *Logger is a valid disabled state.
func (l *Logger) Log(ctx context.Context, entry Entry) error {
	if l == nil {
		return nil
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	l.logger.Info("Audit log entry",
		zap.String("user_id", entry.UserID),
		zap.String("operation", string(entry.OperationType)),
		zap.String("resource_type", string(entry.ResourceType)),
		zap.String("resource_id", entry.ResourceID),
		zap.Time("timestamp", entry.Timestamp),
	)

	query := `
		INSERT INTO audit_logs (user_id, operation_type, resource_type, resource_id, created_at, additional_data)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := l.db.Exec(ctx, query,
		entry.UserID,
		entry.OperationType,
		entry.ResourceType,
		entry.ResourceID,
		entry.Timestamp,
		entry.AdditionalData,
	)
	if err != nil {
		l.logger.Error("Failed to write audit log to database",
			zap.Error(err),
			zap.String("user_id", entry.UserID),
			zap.String("operation", string(entry.OperationType)),
		)
		return err
	}

	return nil
}

// LogAnalysisCreated records a successful analysis write
func (l *Logger) LogAnalysisCreated(ctx context.Context, userID, analysisID string) error {
	return l.Log(ctx, Entry{
		UserID:        userID,
		OperationType: OperationCreate,
		ResourceType:  ResourceAnalysis,
		ResourceID:    analysisID,
	})
}

// LogAnalysisDeleted records a caller-initiated analysis deletion
func (l *Logger) LogAnalysisDeleted(ctx context.Context, userID, analysisID string) error {
	return l.Log(ctx, Entry{
		UserID:        userID,
		OperationType: OperationDelete,
		ResourceType:  ResourceAnalysis,
		ResourceID:    analysisID,
	})
}

// LogHistoryRead records a history retrieval
func (l *Logger) LogHistoryRead(ctx context.Context, userID string, count int) error {
	return l.Log(ctx, Entry{
		UserID:        userID,
		OperationType: OperationRead,
		ResourceType:  ResourceAnalysis,
		AdditionalData: map[string]any{
			"record_count": count,
		},
	})
}
