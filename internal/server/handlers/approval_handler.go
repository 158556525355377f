package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/herdlog/internal/domain/errs"
	"github.com/mamadbah2/herdlog/internal/domain/models"
	"github.com/mamadbah2/herdlog/internal/service/approval"
)

// ApprovalService decides queued submissions.
type ApprovalService interface {
	List(ctx context.Context, actor models.Actor, status models.ApprovalStatus) ([]models.PendingApproval, error)
	Approve(ctx context.Context, actor models.Actor, id string) (models.PendingApproval, error)
	Reject(ctx context.Context, actor models.Actor, id, reason string) (models.PendingApproval, error)
}

// ApprovalHandler exposes the approval queue to owners and managers.
type ApprovalHandler struct {
	svc    ApprovalService
	logger *zap.Logger
}

// NewApprovalHandler constructs the HTTP handler adapter.
func NewApprovalHandler(svc ApprovalService, logger *zap.Logger) *ApprovalHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalHandler{svc: svc, logger: logger}
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// List returns the farm's queue, filtered by the status query parameter (pending by default).
func (h *ApprovalHandler) List(c *gin.Context) {
	status := models.ApprovalStatus(c.DefaultQuery("status", string(models.ApprovalPending)))

	items, err := h.svc.List(c.Request.Context(), actorFrom(c), status)
	if err != nil {
		h.fail(c, err)
		return
	}
	if items == nil {
		items = []models.PendingApproval{}
	}

	c.JSON(http.StatusOK, gin.H{"approvals": items})
}

// Approve commits a pending submission.
func (h *ApprovalHandler) Approve(c *gin.Context) {
	decided, err := h.svc.Approve(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, decided)
}

// Reject discards a pending submission.
func (h *ApprovalHandler) Reject(c *gin.Context) {
	var body rejectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	decided, err := h.svc.Reject(c.Request.Context(), actorFrom(c), c.Param("id"), body.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, decided)
}

func (h *ApprovalHandler) fail(c *gin.Context, err error) {
	if e, ok := errs.As(err); ok && e.Kind == errs.KindAuthorization {
		c.JSON(http.StatusForbidden, gin.H{"error": e.Code, "message": e.Message})
		return
	}

	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "approval not found"})
	case errors.Is(err, approval.ErrNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": "approval is no longer pending"})
	default:
		h.logger.Error("approval request failed", zap.Error(err), zap.String("approval_id", c.Param("id")))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
