package api

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bumothekid/clothing-booth-api-v2/internal/db"
)

type HealthHandler struct {
	database *db.DB
	redis    *redis.Client
}

// NewHealthHandler checks the store and, when client is non-nil, Redis.
func NewHealthHandler(database *db.DB, client *redis.Client) *HealthHandler {
	return &HealthHandler{database: database, redis: client}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{"database": "ok"}

	if err := h.database.PingContext(ctx); err != nil {
		checks["database"] = "error"
		status = http.StatusServiceUnavailable
	}

	if h.redis != nil {
		checks["redis"] = "ok"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = "error"
			status = http.StatusServiceUnavailable
		}
	}

	result := "ok"
	if status != http.StatusOK {
		result = "degraded"
	}

	writeJSON(w, status, map[string]any{
		"status": result,
		"checks": checks,
	})
}
