package http

import (
	"context"
	"net/http"

	"github.com/dkeye/Noesis/internal/app"
	"github.com/gin-gonic/gin"
)

type health struct {
	ctx    context.Context
	router *app.Router
}

func newHealth(ctx context.Context, router *app.Router) *health {
	return &health{ctx: ctx, router: router}
}

// healthz is liveness: a process that can answer is alive.
func (h *health) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readyz fails once shutdown has begun so balancers stop sending new
// connections.
func (h *health) readyz(c *gin.Context) {
	checks := gin.H{"router": "ok"}
	status := http.StatusOK
	if h.router == nil || h.router.Registry == nil {
		checks["router"] = "fail: not wired"
		status = http.StatusServiceUnavailable
	}
	if err := h.ctx.Err(); err != nil {
		checks["shutdown"] = "fail: " + err.Error()
		status = http.StatusServiceUnavailable
	}
	res := "ok"
	if status != http.StatusOK {
		res = "fail"
	}
	c.JSON(status, gin.H{"status": res, "checks": checks, "sessions": sessionCount(h.router)})
}

func sessionCount(r *app.Router) int {
	if r == nil || r.Registry == nil {
		return 0
	}
	return r.Registry.Len()
}
