package controller

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"

	"github.com/A91A1214/Build-Payment-Gateway/app/types"
)

type HealthController struct {
	db    *sql.DB
	redis *redis.Client
}

func NewHealthController(db *sql.DB, redisClient *redis.Client) *HealthController {
	return &HealthController{db: db, redis: redisClient}
}

// Health pings both stores. Either one failing degrades the overall status
// but still answers 200; orchestration readiness gates on the body.
func (c *HealthController) Health(ctx echo.Context) error {
	resp := &types.HealthResponse{
		Status:    "ok",
		Database:  "up",
		Redis:     "up",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	reqCtx := ctx.Request().Context()
	if err := c.db.PingContext(reqCtx); err != nil {
		resp.Status = "degraded"
		resp.Database = "down"
	}
	if err := c.redis.Ping(reqCtx).Err(); err != nil {
		resp.Status = "degraded"
		resp.Redis = "down"
	}

	return ctx.JSON(http.StatusOK, resp)
}
