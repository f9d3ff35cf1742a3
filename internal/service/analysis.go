package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"

	"github.com/twintipsolutions/cough-backend/internal/audit"
	"github.com/twintipsolutions/cough-backend/internal/azure"
	"github.com/twintipsolutions/cough-backend/internal/observability"
	"github.com/twintipsolutions/cough-backend/internal/repository"
	"github.com/twintipsolutions/cough-backend/pkg/model"
)

// AnalysisStore is the persistence surface the service needs.
type AnalysisStore interface {
	Insert(ctx context.Context, userID string, rec *model.StoredAnalysis) error
	ListByUser(ctx context.Context, userID string, limit int) ([]model.StoredAnalysis, error)
	Delete(ctx context.Context, userID, analysisID string) error
	TouchProfile(ctx context.Context, userID string, analyzedAt int64) error
}

var _ AnalysisStore = (*repository.AnalysisRepository)(nil)

// AnalysisOptions are the pipeline tunables wired from configuration.
type AnalysisOptions struct {
	ShortClipFloorSeconds float64
	HistoryDefaultLimit   int
	HistoryMaxLimit       int
	RetainAudio           bool
}

// AnalyzeInput is a validated analysis request: identity already verified,
// required fields present.
type AnalyzeInput struct {
	UserID          string
	AudioData       string // base64
	AudioFormat     string
	DurationSeconds float64
	Metadata        map[string]any
}

// AnalysisService runs the cough analysis pipeline: short-clip check, prompt
// build, model invocation, normalization, persistence, bookkeeping.
type AnalysisService struct {
	store      AnalysisStore
	invoker    Invoker
	normalizer *Normalizer
	archive    azure.BlobStorage // nil when audio retention is disabled
	audit      *audit.Logger
	metrics    *observability.Metrics
	opts       AnalysisOptions
	logger     *zap.Logger
}

// NewAnalysisService creates an AnalysisService. archive and auditLogger may
// be nil.
func NewAnalysisService(
	store AnalysisStore,
	invoker Invoker,
	normalizer *Normalizer,
	archive azure.BlobStorage,
	auditLogger *audit.Logger,
	metrics *observability.Metrics,
	opts AnalysisOptions,
	logger *zap.Logger,
) *AnalysisService {
	if opts.ShortClipFloorSeconds <= 0 {
		opts.ShortClipFloorSeconds = 0.5
	}
	if opts.HistoryDefaultLimit <= 0 {
		opts.HistoryDefaultLimit = 10
	}
	if opts.HistoryMaxLimit < opts.HistoryDefaultLimit {
		opts.HistoryMaxLimit = 100
	}
	return &AnalysisService{
		store:      store,
		invoker:    invoker,
		normalizer: normalizer,
		archive:    archive,
		audit:      auditLogger,
		metrics:    metrics,
		opts:       opts,
		logger:     logger,
	}
}

// Analyze runs one clip through the pipeline and returns the persisted
// result.
func (s *AnalysisService) Analyze(ctx context.Context, input AnalyzeInput) (*model.AnalysisResult, error) {
	audioBytes, err := base64.StdEncoding.DecodeString(input.AudioData)
	if err != nil {
		return nil, fmt.Errorf("%w: audioData is not valid base64", ErrInvalidArgument)
	}

	s.logger.Info("starting cough analysis",
		zap.String("user_id", input.UserID),
		zap.Float64("duration_seconds", input.DurationSeconds),
		zap.String("audio_format", input.AudioFormat),
		zap.Int("audio_bytes", len(audioBytes)),
	)

	var result model.AnalysisResult
	if input.DurationSeconds < s.opts.ShortClipFloorSeconds {
		// Sub-floor clips are overwhelmingly noise or silence; answering
		// without a model call saves cost and avoids spurious guesses.
		s.metrics.IncShortClipSkip()
		s.logger.Info("recording below duration floor, skipping model call",
			zap.Float64("duration_seconds", input.DurationSeconds),
			zap.Float64("floor_seconds", s.opts.ShortClipFloorSeconds),
		)
		result = s.shortClipResult(input.DurationSeconds)
	} else {
		invocation, err := s.invoker.Invoke(ctx, buildMessages(input))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
		}
		s.logger.Info("model reply received",
			zap.String("tier", invocation.Tier),
			zap.String("model", invocation.Model),
			zap.Int("reply_length", len(invocation.Text)),
		)
		result = s.normalizer.Normalize(invocation.Text, input.DurationSeconds)
	}

	result.AnalysisID = uuid.NewString()
	result.Timestamp = time.Now().UnixMilli()

	stored := &model.StoredAnalysis{
		ID:             result.AnalysisID,
		AnalysisResult: result,
		Metadata:       input.Metadata,
	}
	if err := s.store.Insert(ctx, input.UserID, stored); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	s.metrics.IncAnalysisStored()

	// Bookkeeping after the durable result write runs on a context that
	// survives caller disconnects. None of it can fail the request.
	bgCtx := context.WithoutCancel(ctx)

	if err := s.store.TouchProfile(bgCtx, input.UserID, result.Timestamp); err != nil {
		s.metrics.IncCounterWriteFailure()
		s.logger.Error("profile counter update failed",
			zap.Error(err),
			zap.String("user_id", input.UserID),
		)
	}

	if err := s.audit.LogAnalysisCreated(bgCtx, input.UserID, result.AnalysisID); err != nil {
		s.logger.Warn("audit write failed", zap.Error(err))
	}

	if s.opts.RetainAudio && s.archive != nil {
		blobName := fmt.Sprintf("cough-recordings/%s/%d.%s", input.UserID, result.Timestamp, input.AudioFormat)
		if _, err := s.archive.UploadAudio(bgCtx, blobName, audioBytes, audioMimeType(input.AudioFormat), map[string]string{
			"userid":   input.UserID,
			"duration": formatSeconds(input.DurationSeconds),
		}); err != nil {
			s.logger.Warn("audio retention upload failed",
				zap.Error(err),
				zap.String("blob_name", blobName),
			)
		}
	}

	s.logger.Info("cough analysis completed",
		zap.String("user_id", input.UserID),
		zap.String("analysis_id", result.AnalysisID),
		zap.String("cough_type", string(result.Results.CoughType)),
		zap.Float64("confidence", result.Results.Confidence),
	)

	return &result, nil
}

// History returns the caller's past analyses, newest first. A non-positive
// limit selects the default; anything above the maximum is capped.
func (s *AnalysisService) History(ctx context.Context, userID string, limit int) ([]model.StoredAnalysis, error) {
	if limit <= 0 {
		limit = s.opts.HistoryDefaultLimit
	}
	if limit > s.opts.HistoryMaxLimit {
		limit = s.opts.HistoryMaxLimit
	}

	records, err := s.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}

	if err := s.audit.LogHistoryRead(context.WithoutCancel(ctx), userID, len(records)); err != nil {
		s.logger.Warn("audit write failed", zap.Error(err))
	}

	return records, nil
}

// Delete removes one analysis from the caller's namespace.
func (s *AnalysisService) Delete(ctx context.Context, userID, analysisID string) error {
	if err := s.store.Delete(ctx, userID, analysisID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete analysis: %w", err)
	}

	if err := s.audit.LogAnalysisDeleted(context.WithoutCancel(ctx), userID, analysisID); err != nil {
		s.logger.Warn("audit write failed", zap.Error(err))
	}

	return nil
}

// shortClipResult is the canonical answer for clips below the duration
// floor.
func (s *AnalysisService) shortClipResult(durationSeconds float64) model.AnalysisResult {
	return model.AnalysisResult{
		Results: model.Results{
			CoughType:            model.CoughTypeNone,
			Severity:             model.SeverityNone,
			Characteristics:      []string{"Recording too short"},
			PotentialCauses:      []model.PotentialCause{},
			ManagementApproaches: []string{"Please record a longer cough sound"},
			Urgency:              model.UrgencyNone,
			Confidence:           1.0,
		},
		Insights: model.Insights{
			SoundPattern:    "Recording too brief to analyze",
			Frequency:       "N/A",
			Duration:        formatSeconds(durationSeconds) + " seconds",
			AdditionalNotes: []string{fmt.Sprintf("Minimum %s seconds needed for analysis", formatSeconds(s.opts.ShortClipFloorSeconds))},
		},
	}
}

// buildMessages assembles the chat payload: system instruction, task prompt,
// and the clip inlined as an audio content part.
func buildMessages(input AnalyzeInput) []openai.ChatCompletionMessageParamUnion {
	return []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(SystemInstruction()),
		openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(BuildAnalysisPrompt(input.DurationSeconds)),
			openai.InputAudioContentPart(openai.ChatCompletionContentPartInputAudioInputAudioParam{
				Data:   input.AudioData,
				Format: wireAudioFormat(input.AudioFormat),
			}),
		}),
	}
}

// wireAudioFormat maps the client's declared container format onto the tag
// the model service expects. m4a clips travel as mp4 audio.
func wireAudioFormat(format string) string {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "m4a" {
		return "mp4"
	}
	return f
}

// audioMimeType derives the content type recorded on retained clips.
func audioMimeType(format string) string {
	return "audio/" + wireAudioFormat(format)
}
