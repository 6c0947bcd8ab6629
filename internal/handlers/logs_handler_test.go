package handlers

import (
	"bufio"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogsHandler_ReceiveFrontendLogs(t *testing.T) {
	dir := t.TempDir()
	h := NewLogsHandler(dir)
	t.Cleanup(func() { _ = h.Close() })

	router := gin.New()
	router.POST("/logs", h.ReceiveFrontendLogs)

	w := postJSON(router, "/logs", `{"logs":[
		{"timestamp":"2025-03-01T10:00:00Z","level":"error","message":"chat widget failed","context":{"page":"/contact","level":"spoofed"}},
		{"timestamp":"2025-03-01T10:00:01Z","level":"info","message":"booking opened"}
	]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"received":2}`, w.Body.String())

	f, err := os.Open(filepath.Join(dir, FrontendLogFile))
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "chat widget failed", lines[0]["msg"])
	assert.Equal(t, "error", lines[0]["level"])
	assert.Equal(t, "/contact", lines[0]["page"])
	assert.Equal(t, "clinic-web", lines[1]["service"])
}

func TestLogsHandler_RejectsEmptyBatches(t *testing.T) {
	h := NewLogsHandler(t.TempDir())
	t.Cleanup(func() { _ = h.Close() })

	router := gin.New()
	router.POST("/logs", h.ReceiveFrontendLogs)

	for _, body := range []string{`{"logs":[]}`, `{}`, `not json`} {
		w := postJSON(router, "/logs", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}
