package server

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/fathima-sithara/konga-enrollment/internal/config"
	"github.com/fathima-sithara/konga-enrollment/internal/handlers"
	"github.com/fathima-sithara/konga-enrollment/internal/metrics"
	"github.com/fathima-sithara/konga-enrollment/internal/routes"
	"github.com/fathima-sithara/konga-enrollment/internal/ws"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestServer(t *testing.T) {
	metrics.Init()
	log := zap.NewNop()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "enrollee-abc.pdf"), []byte("%PDF-1.3"), 0o644))

	cfg := &config.Config{}
	cfg.App.CORSOrigins = "*"
	cfg.Report.OutputDir = dir
	cfg.Report.URLPrefix = "/pdfs"

	teapot := func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "short and stout") }
	app := New(cfg, log, routes.Handlers{
		Notifications: handlers.NewNotificationHandler(nil, ws.NewHub(log), log),
	}, routes.Guards{Auth: teapot, QueryAuth: teapot, EnrollLimit: teapot})

	tests := []struct {
		name    string
		path    string
		status  int
		message string
	}{
		{"health", "/healthz", fiber.StatusOK, ""},
		{"metrics", "/metrics", fiber.StatusOK, ""},
		{"static pdf", "/pdfs/enrollee-abc.pdf", fiber.StatusOK, ""},
		{"unknown route", "/api/v1/nowhere", fiber.StatusNotFound, "route not found"},
		{"fiber error enveloped", "/api/v1/stats/dashboard", fiber.StatusTeapot, "short and stout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, tt.path, nil))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
			if tt.message == "" {
				return
			}
			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			var body map[string]any
			require.NoError(t, json.Unmarshal(raw, &body))
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.message, body["message"])
		})
	}
}
