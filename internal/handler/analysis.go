package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/twintipsolutions/cough-backend/internal/auth"
	"github.com/twintipsolutions/cough-backend/internal/service"
)

// AnalysisHandler implements the cough analysis API endpoints.
type AnalysisHandler struct {
	service *service.AnalysisService
	logger  *zap.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler
func NewAnalysisHandler(service *service.AnalysisService, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		service: service,
		logger:  logger,
	}
}

// PostAnalysis runs the full analysis pipeline for one audio clip.
func (h *AnalysisHandler) PostAnalysis(c *gin.Context) {
	callerID, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    CodeInvalidArgument,
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	if missing := missingAnalyzeFields(req); len(missing) > 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    CodeInvalidArgument,
			Message: "Missing required fields",
			Details: stringPtr(strings.Join(missing, ", ")),
		})
		return
	}

	// The identity in the body must match the verified token. Rejecting
	// before any service call keeps cross-user requests side-effect free.
	if req.UserID != callerID {
		h.logger.Warn("user identity mismatch",
			zap.String("caller_id", callerID),
			zap.String("requested_id", req.UserID),
		)
		c.JSON(http.StatusForbidden, ErrorResponse{
			Code:    CodePermissionDenied,
			Message: "User ID does not match authenticated user",
		})
		return
	}

	result, err := h.service.Analyze(c.Request.Context(), service.AnalyzeInput{
		UserID:          callerID,
		AudioData:       req.AudioData,
		AudioFormat:     req.AudioFormat,
		DurationSeconds: *req.Duration,
		Metadata:        req.Metadata,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidArgument) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    CodeInvalidArgument,
				Message: "Invalid audio payload",
				Details: stringPtr(err.Error()),
			})
			return
		}
		h.logger.Error("analysis failed",
			zap.Error(err),
			zap.String("user_id", callerID),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    CodeInternal,
			Message: "An error occurred during analysis",
		})
		return
	}

	h.logger.Info("analysis request completed",
		zap.String("user_id", callerID),
		zap.String("analysis_id", result.AnalysisID),
	)

	c.JSON(http.StatusOK, result)
}

// PostHistory returns the caller's analyses, newest first.
func (h *AnalysisHandler) PostHistory(c *gin.Context) {
	callerID, ok := callerIdentity(c)
	if !ok {
		return
	}

	// An empty body is a valid request for the default page size.
	var req HistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    CodeInvalidArgument,
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	records, err := h.service.History(c.Request.Context(), callerID, req.Limit)
	if err != nil {
		h.logger.Error("history fetch failed",
			zap.Error(err),
			zap.String("user_id", callerID),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    CodeInternal,
			Message: "Failed to fetch history",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": records})
}

// DeleteAnalysis removes one analysis from the caller's history.
func (h *AnalysisHandler) DeleteAnalysis(c *gin.Context) {
	callerID, ok := callerIdentity(c)
	if !ok {
		return
	}

	analysisID := c.Param("id")
	if analysisID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    CodeInvalidArgument,
			Message: "Missing analysis id",
		})
		return
	}

	if err := h.service.Delete(c.Request.Context(), callerID, analysisID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Code:    CodeNotFound,
				Message: "Analysis not found",
			})
			return
		}
		h.logger.Error("analysis delete failed",
			zap.Error(err),
			zap.String("user_id", callerID),
			zap.String("analysis_id", analysisID),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    CodeInternal,
			Message: "Failed to delete analysis",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": analysisID})
}

// callerIdentity reads the verified user id set by the auth middleware.
func callerIdentity(c *gin.Context) (string, bool) {
	userID := c.GetString(auth.ContextUserIDKey)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Code:    CodeUnauthenticated,
			Message: "User must be authenticated",
		})
		return "", false
	}
	return userID, true
}

// missingAnalyzeFields lists required fields absent from the request, in a
// stable order for error details.
func missingAnalyzeFields(req AnalyzeRequest) []string {
	var missing []string
	if req.UserID == "" {
		missing = append(missing, "userId")
	}
	if req.AudioData == "" {
		missing = append(missing, "audioData")
	}
	if req.AudioFormat == "" {
		missing = append(missing, "audioFormat")
	}
	if req.Duration == nil {
		missing = append(missing, "duration")
	}
	return missing
}
