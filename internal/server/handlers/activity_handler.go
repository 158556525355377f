package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/herdlog/internal/domain/errs"
	"github.com/mamadbah2/herdlog/internal/domain/models"
	"github.com/mamadbah2/herdlog/internal/service/ingestion"
)

// Ingestor runs a transcription through the pipeline.
type Ingestor interface {
	Process(ctx context.Context, req ingestion.Request) (models.IngestResult, error)
}

// ActivityHandler exposes voice ingestion over HTTP.
type ActivityHandler struct {
	svc    Ingestor
	logger *zap.Logger
}

// NewActivityHandler constructs the HTTP handler adapter.
func NewActivityHandler(svc Ingestor, logger *zap.Logger) *ActivityHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityHandler{svc: svc, logger: logger}
}

type voiceRequest struct {
	Transcription string `json:"transcription"`
	AnimalID      string `json:"animal_id"`
	FeedType      string `json:"feed_type"`
}

// Voice ingests one transcription for the authenticated actor.
func (h *ActivityHandler) Voice(c *gin.Context) {
	var body voiceRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Warn("invalid voice payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.svc.Process(c.Request.Context(), ingestion.Request{
		Actor:         actorFrom(c),
		Transcription: body.Transcription,
		AnimalID:      body.AnimalID,
		FeedTypeHint:  body.FeedType,
	})
	if err != nil {
		h.logger.Error("voice ingestion failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process transcription"})
		return
	}

	c.JSON(statusOf(result), result)
}

func statusOf(result models.IngestResult) int {
	switch result.Outcome {
	case models.OutcomeCommitted:
		return http.StatusCreated
	case models.OutcomeQueued:
		return http.StatusAccepted
	case models.OutcomeClarification:
		return http.StatusUnprocessableEntity
	}
	switch {
	case result.Retryable:
		return http.StatusGatewayTimeout
	case result.ErrorKind == string(errs.KindAuthorization):
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}
