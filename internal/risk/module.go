// Package risk provides the risk aggregation bounded context module.
package risk

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	apphttp "surveillance_portal_backend/internal/http"
	"surveillance_portal_backend/internal/risk/handler"
	"surveillance_portal_backend/internal/risk/repository"
	"surveillance_portal_backend/internal/risk/service"
	"surveillance_portal_backend/platform/events"
	"surveillance_portal_backend/platform/logger"
)

// Module is the risk bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the risk module. cache may be nil when
// Redis is disabled; profile reads then always hit the database.
func NewModule(
	pool *pgxpool.Pool,
	leadSource service.LeadSource,
	cache *redis.Client,
	cacheTTL time.Duration,
	bus events.Bus,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, leadSource, cache, cacheTTL, log, nil)
	svc.RegisterEventHandlers(bus)

	return &Module{
		handler: handler.New(svc),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "risk"
}

// Service returns the risk service for use by other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts risk routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/risk-profiles")
	group.GET("", m.handler.List)
	group.GET("/:entityId", m.handler.Get)
	group.POST("/:entityId/recompute", m.handler.Recompute)
	group.PUT("/:entityId/watchlist", m.handler.SetWatchlist)
	group.POST("/:entityId/alert/ack", m.handler.AcknowledgeAlert)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
