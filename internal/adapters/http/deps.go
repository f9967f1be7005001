package http

import (
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/touristroute/internal/adapters/postgres"
	"github.com/samirrijal/touristroute/internal/adapters/valkey"
	"github.com/samirrijal/touristroute/internal/core/usecases"
)

// ViewFeed delivers raw view-updated events for one session.
type ViewFeed interface {
	SubscribeView(sessionID string, fn func(data []byte)) (cancel func(), err error)
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Planner *usecases.PlannerService
	State   *usecases.StateService
	History *usecases.HistoryService
	Auth    *usecases.AuthService
	Feed    ViewFeed
	NATS    *nats.Conn
	DB      *postgres.DB
	Cache   *valkey.Cache

	// RequestTimeout bounds each REST and GraphQL request; zero means 15s.
	RequestTimeout time.Duration

	// OpenAPIPath is served at /docs/openapi.yaml; empty means api/openapi.yaml.
	OpenAPIPath string
}

func (d *Dependencies) requestTimeout() time.Duration {
	if d.RequestTimeout > 0 {
		return d.RequestTimeout
	}
	return 15 * time.Second
}

func (d *Dependencies) openAPIPath() string {
	if d.OpenAPIPath != "" {
		return d.OpenAPIPath
	}
	return "api/openapi.yaml"
}
