package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/twintipsolutions/cough-backend/internal/security"
	"github.com/twintipsolutions/cough-backend/pkg/model"
)

// ErrNotFound is returned when a record does not exist in the caller's
// namespace. A record owned by another caller is indistinguishable from a
// missing one.
var ErrNotFound = errors.New("analysis not found")

// AnalysisRepository persists analysis records and caller profile counters.
// Every query is scoped by user ID; no cross-caller access path exists.
type AnalysisRepository struct {
	db        *pgxpool.Pool
	encryptor *security.Encryptor
	logger    *zap.Logger
}

// NewAnalysisRepository creates a new AnalysisRepository. The encryptor may
// be nil, in which case metadata is stored in the clear.
func NewAnalysisRepository(db *pgxpool.Pool, encryptor *security.Encryptor, logger *zap.Logger) *AnalysisRepository {
	return &AnalysisRepository{
		db:        db,
		encryptor: encryptor,
		logger:    logger,
	}
}

// Insert writes an analysis record under the caller's namespace.
func (r *AnalysisRepository) Insert(ctx context.Context, userID string, rec *model.StoredAnalysis) error {
	resultsJSON, err := json.Marshal(rec.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	insightsJSON, err := json.Marshal(rec.Insights)
	if err != nil {
		return fmt.Errorf("failed to marshal insights: %w", err)
	}

	metadataText, encrypted, err := r.encodeMetadata(rec.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO analyses (id, user_id, ts, results, insights, metadata, metadata_encrypted)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.db.Exec(ctx, query,
		rec.AnalysisID,
		userID,
		rec.Timestamp,
		resultsJSON,
		insightsJSON,
		metadataText,
		encrypted,
	)
	if err != nil {
		r.logger.Error("failed to insert analysis",
			zap.Error(err),
			zap.String("analysis_id", rec.AnalysisID),
			zap.String("user_id", userID),
		)
		return fmt.Errorf("failed to insert analysis: %w", err)
	}

	return nil
}

// ListByUser returns the caller's analyses ordered by timestamp descending.
func (r *AnalysisRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.StoredAnalysis, error) {
	query := `
		SELECT id, ts, results, insights, metadata, metadata_encrypted
		FROM analyses
		WHERE user_id = $1
		ORDER BY ts DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		r.logger.Error("failed to list analyses", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	records := make([]model.StoredAnalysis, 0, limit)
	for rows.Next() {
		var (
			rec          model.StoredAnalysis
			resultsJSON  []byte
			insightsJSON []byte
			metadataText *string
			encrypted    bool
		)
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &resultsJSON, &insightsJSON, &metadataText, &encrypted); err != nil {
			return nil, fmt.Errorf("failed to scan analysis row: %w", err)
		}
		rec.AnalysisID = rec.ID

		// Stored rows may predate schema revisions; run them through the
		// same defaulting decoder as live model output.
		var resultsMap, insightsMap map[string]any
		if err := json.Unmarshal(resultsJSON, &resultsMap); err != nil {
			r.logger.Warn("stored results are not valid JSON", zap.String("analysis_id", rec.ID), zap.Error(err))
		}
		if err := json.Unmarshal(insightsJSON, &insightsMap); err != nil {
			r.logger.Warn("stored insights are not valid JSON", zap.String("analysis_id", rec.ID), zap.Error(err))
		}
		rec.Results = model.DecodeResults(resultsMap)
		rec.Insights = model.DecodeInsights(insightsMap)

		metadata, err := r.decodeMetadata(metadataText, encrypted)
		if err != nil {
			r.logger.Warn("failed to decode stored metadata", zap.String("analysis_id", rec.ID), zap.Error(err))
		} else {
			rec.Metadata = metadata
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read analysis rows: %w", err)
	}

	return records, nil
}

// Delete removes one analysis from the caller's namespace.
func (r *AnalysisRepository) Delete(ctx context.Context, userID, analysisID string) error {
	result, err := r.db.Exec(ctx,
		`DELETE FROM analyses WHERE id = $1 AND user_id = $2`,
		analysisID, userID,
	)
	if err != nil {
		r.logger.Error("failed to delete analysis",
			zap.Error(err),
			zap.String("analysis_id", analysisID),
			zap.String("user_id", userID),
		)
		return fmt.Errorf("failed to delete analysis: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllForUser removes every record in the caller's namespace. Used on
// account deletion.
func (r *AnalysisRepository) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM analyses WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete analyses: %w", err)
	}
	return result.RowsAffected(), nil
}

// TouchProfile bumps the caller's analysis counter and overwrites the last
// analysis timestamp. The increment is atomic at the database.
func (r *AnalysisRepository) TouchProfile(ctx context.Context, userID string, analyzedAt int64) error {
	query := `
		INSERT INTO user_profiles (user_id, total_analyses, last_analysis_at)
		VALUES ($1, 1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET total_analyses = user_profiles.total_analyses + 1,
		    last_analysis_at = EXCLUDED.last_analysis_at
	`

	if _, err := r.db.Exec(ctx, query, userID, analyzedAt); err != nil {
		r.logger.Error("failed to update profile counters",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		return fmt.Errorf("failed to update profile counters: %w", err)
	}
	return nil
}

// GetProfile reads the caller's counters.
func (r *AnalysisRepository) GetProfile(ctx context.Context, userID string) (totalAnalyses int64, lastAnalysisAt int64, err error) {
	err = r.db.QueryRow(ctx,
		`SELECT total_analyses, COALESCE(last_analysis_at, 0) FROM user_profiles WHERE user_id = $1`,
		userID,
	).Scan(&totalAnalyses, &lastAnalysisAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("failed to read profile: %w", err)
	}
	return totalAnalyses, lastAnalysisAt, nil
}

func (r *AnalysisRepository) encodeMetadata(metadata map[string]any) (*string, bool, error) {
	if len(metadata) == 0 {
		return nil, false, nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	text := string(raw)
	if r.encryptor.Enabled() {
		text, err = r.encryptor.Encrypt(text)
		if err != nil {
			return nil, false, fmt.Errorf("failed to encrypt metadata: %w", err)
		}
		return &text, true, nil
	}
	return &text, false, nil
}

func (r *AnalysisRepository) decodeMetadata(text *string, encrypted bool) (map[string]any, error) {
	if text == nil || *text == "" {
		return nil, nil
	}
	raw := *text
	if encrypted {
		var err error
		raw, err = r.encryptor.Decrypt(raw)
		if err != nil {
			return nil, err
		}
	}
	var metadata map[string]any
	if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
		return nil, err
	}
	return metadata, nil
}
