package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"`
}

// HealthHandler reports liveness and process uptime.
type HealthHandler struct {
	started time.Time
	now     func() time.Time
}

// NewHealthHandler records started as the process start time.
func NewHealthHandler(started time.Time) *HealthHandler {
	return &HealthHandler{started: started, now: time.Now}
}

// Health handles GET /health.
func (h *HealthHandler) Health(c echo.Context) error {
	now := h.now()
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "OK",
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Uptime:    now.Sub(h.started).Seconds(),
	})
}

// Root handles GET /api.
func (h *HealthHandler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, MessageResponse{Message: "Users API is running!"})
}
