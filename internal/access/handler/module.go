package handler

import (
	"surveillance_portal_backend/internal/access"
	apphttp "surveillance_portal_backend/internal/http"
)

// Module is the access-control bounded context module implementing
// http.Module. It lives in the handler package because the access service
// sits directly in package access, which this package already imports.
type Module struct {
	handler *Handler
	service *access.Service
}

// NewModule wraps an initialized access service as an HTTP module.
func NewModule(svc *access.Service) *Module {
	return &Module{handler: New(svc), service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "access"
}

// Service returns the access service for use by other modules.
func (m *Module) Service() *access.Service {
	return m.service
}

// RegisterRoutes mounts permission routes on the provided router context.
// Read endpoints are open to any signed-in officer; edits are central-only.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/permissions", m.handler.Matrix)
	ctx.Protected.GET("/permissions/check", m.handler.Check)

	central := ctx.Central.Group("/permissions")
	central.POST("/stage", m.handler.Stage)
	central.POST("/discard", m.handler.Discard)
	central.POST("/save", m.handler.Save)
	central.POST("/reset", m.handler.Reset)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
