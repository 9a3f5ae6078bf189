package http

import (
	"github.com/nats-io/nats.go"
	"github.com/samirrijal/hiitroute/internal/adapters/objectstore"
	"github.com/samirrijal/hiitroute/internal/adapters/postgres"
	"github.com/samirrijal/hiitroute/internal/adapters/valkey"
	"github.com/samirrijal/hiitroute/internal/core/ports"
	"github.com/samirrijal/hiitroute/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Sessions  *usecases.SessionService
	Routes    *usecases.RouteService
	Locations *usecases.MeetingLocationService
	Exports   *usecases.ExportService

	// Saver persists payloads posted directly by older clients. Defaults to Routes.
	Saver ports.RouteSaver

	// Optional infrastructure, checked by readiness and used by the live view.
	NATS      *nats.Conn
	DB        *postgres.DB
	Cache     *valkey.Cache
	Artifacts *objectstore.Store
}

func (d *Dependencies) saver() ports.RouteSaver {
	if d.Saver != nil {
		return d.Saver
	}
	return d.Routes
}
