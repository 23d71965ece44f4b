// Package leads provides the lead lifecycle bounded context module.
package leads

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"surveillance_portal_backend/internal/adapters/storage"
	apphttp "surveillance_portal_backend/internal/http"
	"surveillance_portal_backend/internal/leads/handler"
	"surveillance_portal_backend/internal/leads/query"
	"surveillance_portal_backend/internal/leads/repository"
	"surveillance_portal_backend/internal/leads/service"
	"surveillance_portal_backend/platform/events"
	"surveillance_portal_backend/platform/logger"
	"surveillance_portal_backend/platform/validator"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler  *handler.Handler
	public   *handler.PublicHandler
	evidence *handler.EvidenceHandler
	service  *service.Service
}

// NewModule creates and initializes the leads module with all its
// dependencies. storageSvc may be nil when object storage is disabled;
// evidence routes are not mounted in that case.
func NewModule(
	pool *pgxpool.Pool,
	auth service.Authorizer,
	bus events.Bus,
	storageSvc storage.StorageService,
	evidenceBucket string,
	appBaseURL string,
	log *logger.Logger,
	val *validator.Validator,
) *Module {
	repo := repository.New(pool, log)
	audit := repository.NewAudit(pool)

	svc := service.New(repo, audit, auth, bus, log, nil)
	querySvc := query.New(repo, log, nil)

	h := handler.New(svc, querySvc, val)

	m := &Module{
		handler: h,
		public:  handler.NewPublic(h, appBaseURL),
		service: svc,
	}
	if storageSvc != nil {
		m.evidence = handler.NewEvidence(h, storageSvc, evidenceBucket)
	}
	return m
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the lead lifecycle service for use by other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts lead routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	public := ctx.V1.Group("/public")
	public.POST("/tips", ctx.IntakeRateLimiter.RateLimit(), m.public.SubmitTip)
	public.GET("/tips/:code", m.public.TrackTip)

	leadsGroup := ctx.Protected.Group("/leads")
	leadsGroup.POST("", m.handler.Create)
	leadsGroup.GET("", m.handler.List)
	leadsGroup.GET("/:id", m.handler.Get)
	leadsGroup.DELETE("/:id", m.handler.Delete)
	leadsGroup.GET("/:id/audit", m.handler.AuditTrail)
	leadsGroup.GET("/:id/export", m.handler.Export)
	leadsGroup.GET("/:id/advisories", m.handler.Advisories)
	leadsGroup.POST("/:id/actions", m.handler.ApplyAction)
	leadsGroup.POST("/:id/escalations", m.handler.Escalate)

	if m.evidence != nil {
		leadsGroup.POST("/:id/evidence", m.evidence.Upload)
		leadsGroup.GET("/:id/evidence/url", m.evidence.DownloadURL)
	}

	ctx.Protected.GET("/lead-statuses/:status/actions", m.handler.AllowedActions)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
