package usecases

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/samirrijal/touristroute/internal/core/domain"
	"github.com/samirrijal/touristroute/internal/core/ports"
)

const (
	maxStateKeyLen = 200

	// DefaultMaxBlobBytes bounds a single stored state blob.
	DefaultMaxBlobBytes = 256 * 1024

	// client keys live under their own prefix so they never collide with
	// the planner's view:<session> entries.
	clientStatePrefix = "nav:"
)

// StateService stores opaque client state (navigation stacks, screen state).
type StateService struct {
	store    ports.StateStore
	maxBytes int
}

// NewStateService creates a new StateService. maxBytes <= 0 uses DefaultMaxBlobBytes.
func NewStateService(store ports.StateStore, maxBytes int) *StateService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBlobBytes
	}
	return &StateService{store: store, maxBytes: maxBytes}
}

// Get returns the blob stored under key, or domain.ErrNotFound.
func (s *StateService) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateStateKey(key); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, clientStatePrefix+key)
}

// Set replaces the blob under key.
func (s *StateService) Set(ctx context.Context, key string, blob []byte) error {
	if err := validateStateKey(key); err != nil {
		return err
	}
	if len(blob) == 0 {
		return &domain.ValidationError{Field: "body", Message: "must not be empty"}
	}
	if len(blob) > s.maxBytes {
		return &domain.ValidationError{Field: "body", Message: fmt.Sprintf("exceeds %d bytes", s.maxBytes)}
	}
	return s.store.Set(ctx, clientStatePrefix+key, blob)
}

// Delete removes key. Deleting a missing key is not an error.
func (s *StateService) Delete(ctx context.Context, key string) error {
	if err := validateStateKey(key); err != nil {
		return err
	}
	return s.store.Delete(ctx, clientStatePrefix+key)
}

func validateStateKey(key string) error {
	if key == "" {
		return &domain.ValidationError{Field: "key", Message: "must not be empty"}
	}
	if len(key) > maxStateKeyLen {
		return &domain.ValidationError{Field: "key", Message: fmt.Sprintf("too long (max %d characters)", maxStateKeyLen)}
	}
	if strings.IndexFunc(key, unicode.IsSpace) >= 0 {
		return &domain.ValidationError{Field: "key", Message: "must not contain whitespace"}
	}
	return nil
}
