package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/wellbeing-api/internal/service"
	"github.com/noah-isme/wellbeing-api/pkg/response"
)

type sessionReporter interface {
	Generate(ctx context.Context, format string) (*service.SessionReport, error)
}

// SessionReportHandler serves active session exports to staff.
type SessionReportHandler struct {
	reports sessionReporter
	logger  *zap.Logger
}

// NewSessionReportHandler constructs the handler.
func NewSessionReportHandler(reports sessionReporter, logger *zap.Logger) *SessionReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionReportHandler{reports: reports, logger: logger}
}

// Download godoc
// @Summary Active session report
// @Description Export live sessions as CSV or PDF
// @Tags Admin
// @Produce text/csv,application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/sessions/report [get]
func (h *SessionReportHandler) Download(c *gin.Context) {
	report, err := h.reports.Generate(c.Request.Context(), c.Query("format"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.File(c, report.Filename, report.ContentType, report.Body)
}
