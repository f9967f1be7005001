package ports

import (
	"context"

	"github.com/samirrijal/touristroute/internal/core/domain"
)

// RecommendationClient calls the external recommendation backend.
// Failures are *domain.NetworkError or *domain.ServerError.
type RecommendationClient interface {
	FetchRecommendations(ctx context.Context, startCity, endCity string) (*domain.RecommendationResponse, error)
}

// AuthClient forwards credentials to the external auth endpoints.
type AuthClient interface {
	Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error)
	Register(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishViewUpdated(ctx context.Context, sessionID string, view *domain.RouteView) error
	PublishSearchRecorded(ctx context.Context, rec *domain.SearchRecord) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
