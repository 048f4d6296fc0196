package router

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"sms-ingress-server/internal/config"
	"sms-ingress-server/internal/handlers"
	"sms-ingress-server/pkg/logger"
	"sms-ingress-server/pkg/middleware"
	"sms-ingress-server/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MaxBodyBytes caps request bodies; the largest valid payload is far smaller
const MaxBodyBytes = 64 << 10

const healthCheckTimeout = 2 * time.Second

// Pinger reports whether a backing service is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the collaborators the HTTP layer is built from
type Dependencies struct {
	Config    *config.Config
	Messaging handlers.MessagingServiceInterface
	// Checked by /health, keyed by a display name
	Checks  map[string]Pinger
	Version string
}

type Router struct {
	engine  *gin.Engine
	checks  map[string]Pinger
	version string
}

func NewRouter(deps Dependencies) (*Router, error) {
	if deps.Messaging == nil {
		return nil, errors.New("messaging service cannot be nil")
	}
	cfg := deps.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := handlers.RegisterValidators(cfg.SMS.DefaultRegion); err != nil {
		return nil, err
	}

	r := &Router{
		engine:  gin.New(),
		checks:  deps.Checks,
		version: deps.Version,
	}

	r.engine.HandleMethodNotAllowed = true
	r.engine.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.AuditLogMiddleware(),
		middleware.SecurityHeadersMiddleware(),
		middleware.CORSMiddleware(cfg.CORS.AllowOrigins),
		middleware.RequestSizeLimitMiddleware(MaxBodyBytes),
	)
	if cfg.Server.ForceHTTPS {
		r.engine.Use(middleware.HTTPSRedirectMiddleware())
	}

	// Configure routes
	r.engine.GET("/health", r.handleHealth)
	r.engine.NoRoute(r.handleNotFound)
	r.engine.NoMethod(r.handleMethodNotAllowed)

	messaging := handlers.NewMessagingHandler(deps.Messaging, cfg)
	v2 := r.engine.Group("/api/v2", middleware.AuthMiddleware(cfg))
	{
		v2.POST("/a2p", messaging.SendA2P)
		v2.POST("/otp", messaging.SendOTP)
		v2.POST("/otp/verify", messaging.VerifyOTP)
	}

	return r, nil
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.engine.ServeHTTP(w, req)
}

func (r *Router) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(r.checks))
	for name := range r.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	deps := make(gin.H, len(names))
	for _, name := range names {
		if err := r.checks[name].Ping(ctx); err != nil {
			logger.Ctx(c.Request.Context()).Warn("Health check failed", zap.String("dependency", name), zap.Error(err))
			deps[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	body := gin.H{"status": "ok", "time": time.Now().UTC()}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	if r.version != "" {
		body["version"] = r.version
	}
	if len(deps) > 0 {
		body["dependencies"] = deps
	}
	c.JSON(status, body)
}

func (r *Router) handleNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, utils.Fail("Not found", utils.CodeNotFound))
}

func (r *Router) handleMethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, utils.Fail("Method not allowed", utils.CodeMethodNotAllowed))
}
