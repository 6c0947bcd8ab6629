package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/goldhabermd/clinic-api/pkg/logger"
	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FrontendLogFile is the rotated file that receives browser log batches
const FrontendLogFile = "frontend.log"

type LogsHandler struct {
	mu  sync.Mutex
	out io.WriteCloser
}

type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

type LogBatchRequest struct {
	Logs []LogEntry `json:"logs" binding:"required,max=100"`
}

func NewLogsHandler(logDir string) *LogsHandler {
	return &LogsHandler{
		out: &lumberjack.Logger{
			Filename: filepath.Join(logDir, FrontendLogFile),
			MaxSize:  50,
			MaxAge:   14,
			Compress: true,
		},
	}
}

// Close flushes and closes the log file
func (h *LogsHandler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.out.Close()
}

func (h *LogsHandler) ReceiveFrontendLogs(c *gin.Context) {
	var req LogBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if len(req.Logs) == 0 {
		respondError(c, http.StatusBadRequest, "No logs provided", nil)
		return
	}

	if err := h.writeLogs(req.Logs); err != nil {
		logger.Error("Failed to write frontend logs", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to write logs", err)
		return
	}

	logger.Debug("Received frontend logs", zap.Int("count", len(req.Logs)))
	c.JSON(http.StatusOK, gin.H{"success": true, "received": len(req.Logs)})
}

func (h *LogsHandler) writeLogs(logs []LogEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	// One JSON line per entry, shaped like the backend log
	encoder := json.NewEncoder(h.out)
	for _, entry := range logs {
		logLine := map[string]interface{}{
			"timestamp": entry.Timestamp,
			"level":     entry.Level,
			"msg":       entry.Message,
			"service":   "clinic-web",
		}
		for k, v := range entry.Context {
			if _, reserved := logLine[k]; !reserved {
				logLine[k] = v
			}
		}

		if err := encoder.Encode(logLine); err != nil {
			return fmt.Errorf("failed to encode log entry: %w", err)
		}
	}

	return nil
}
