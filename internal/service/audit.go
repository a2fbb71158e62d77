package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/wellbeing-api/internal/models"
)

type auditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// auditTrail writes audit entries on a best effort basis; failures are logged and swallowed.
type auditTrail struct {
	repo   auditRepository
	logger *zap.Logger
}

func newAuditTrail(repo auditRepository, logger *zap.Logger) *auditTrail {
	return &auditTrail{repo: repo, logger: logger}
}

func (a *auditTrail) record(ctx context.Context, userID, action, resource string, meta models.ClientMeta, details map[string]interface{}) {
	if a == nil || a.repo == nil {
		return
	}
	entry := &models.AuditLog{
		ID:        uuid.NewString(),
		Action:    action,
		Resource:  resource,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
		CreatedAt: time.Now().UTC(),
	}
	if userID != "" {
		entry.UserID = &userID
	}
	if len(details) > 0 {
		payload, err := json.Marshal(details)
		if err == nil {
			entry.Metadata = payload
		}
	}
	if err := a.repo.CreateAuditLog(ctx, entry); err != nil {
		a.logger.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}
