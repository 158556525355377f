package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/herdlog/internal/domain/models"
)

// Headers set by the upstream authentication proxy.
const (
	HeaderUserID = "X-User-ID"
	HeaderFarmID = "X-Farm-ID"

	actorKey = "actor"
)

// MembershipLookup resolves a verified user to their role in a farm.
type MembershipLookup interface {
	GetMembership(ctx context.Context, farmID, userID string) (models.Membership, error)
}

// RequireActor authenticates the caller from the proxy headers and stores the actor in the
// request context. Users without a membership in the farm are refused.
func RequireActor(members MembershipLookup, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		farmID := strings.TrimSpace(c.GetHeader(HeaderFarmID))
		if userID == "" || farmID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing user or farm header"})
			return
		}

		m, err := members.GetMembership(c.Request.Context(), farmID, userID)
		if errors.Is(err, models.ErrNotFound) {
			logger.Warn("user is not a member of the farm", zap.String("user_id", userID), zap.String("farm_id", farmID))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not a member of this farm"})
			return
		}
		if err != nil {
			logger.Error("membership lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.Set(actorKey, m.Actor())
		c.Next()
	}
}

func actorFrom(c *gin.Context) models.Actor {
	v, _ := c.Get(actorKey)
	actor, _ := v.(models.Actor)
	return actor
}
