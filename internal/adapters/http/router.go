package http

import (
	"context"
	"net/http"

	"github.com/dkeye/Noesis/internal/adapters/signal"
	"github.com/dkeye/Noesis/internal/app"
	"github.com/dkeye/Noesis/internal/config"
	"github.com/dkeye/Noesis/internal/metrics"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const clientTokenKey = "ct"

// ClientTokenMiddleware gives every browser a stable token kept in the
// cookie session. It only correlates log lines; it is not an identity.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		token, _ := sess.Get(clientTokenKey).(string)
		if token == "" {
			token = uuid.NewString()
			sess.Set(clientTokenKey, token)
			if err := sess.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save client token")
			}
		}
		c.Set("client_token", token)
		c.Next()
	}
}

type Deps struct {
	Router  *app.Router
	Signal  *signal.SignalWSController
	Metrics *metrics.Metrics
	Assist  *AssistHandlers
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("NoesisSessions", store))
	r.Use(ClientTokenMiddleware())

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
	}
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Noesis relay is running")
	})

	health := newHealth(ctx, deps.Router)
	r.GET("/healthz", health.healthz)
	r.GET("/readyz", health.readyz)
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	r.GET("/ws", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("ct", c.GetString("client_token")).Msg("ws endpoint hit")
		deps.Signal.HandleSignal(ctx, c)
	})

	api := r.Group("/api")
	api.GET("/sessions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": deps.Router.Registry.Snapshot()})
	})
	if deps.Assist != nil {
		api.POST("/suggest-text", deps.Assist.suggestText)
		api.POST("/analyze-emotion", deps.Assist.analyzeEmotion)
		api.POST("/searchDocs", deps.Assist.searchDocs)
	}

	log.Info().Str("module", "adapters.http").Bool("assist", deps.Assist != nil).Msg("router setup")
	return r
}
