package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/wellbeing-api/internal/models"
	appErrors "github.com/noah-isme/wellbeing-api/pkg/errors"
	"github.com/noah-isme/wellbeing-api/pkg/middleware/requestid"
	"github.com/noah-isme/wellbeing-api/pkg/response"
)

func clientMeta(c *gin.Context) models.ClientMeta {
	return models.ClientMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

// fail renders err and logs the cause of server side failures.
func fail(c *gin.Context, log *zap.Logger, err error) {
	if appErr := appErrors.FromError(err); appErr.Status >= 500 {
		log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", requestid.Value(c)),
			zap.Error(err),
		)
	}
	response.Error(c, err)
}
