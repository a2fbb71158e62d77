package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/wellbeing-api/internal/models"
)

type recordingAudit struct {
	entries []*models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.entries = append(r.entries, log)
	return nil
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &recordingAudit{}
	router := gin.New()
	router.GET("/report", func(c *gin.Context) {
		c.Set(ContextUserKey, &models.UserContext{User: models.UserInfo{ID: "u-9"}, IsAuthenticated: true})
		c.Next()
	}, Audit(repo, models.AuditActionSessionReport, "sessions", nil), func(c *gin.Context) {
		if c.Query("fail") != "" {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/report?format=pdf", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/report?fail=1", nil))

	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	assert.Equal(t, models.AuditActionSessionReport, entry.Action)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "u-9", *entry.UserID)
	assert.Contains(t, string(entry.Metadata), "format=pdf")
}
