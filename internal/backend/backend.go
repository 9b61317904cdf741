// Package backend builds the identity and document services selected by configuration.
package backend

import (
	"context"
	"fmt"

	"todo/internal/backend/firebase"
	"todo/internal/backend/local"
	"todo/internal/config"
	"todo/internal/service"
	"todo/internal/task"
)

// New opens the configured backend. The caller must call Close when done.
func New(ctx context.Context, cfg *config.Config) (service.Backend, error) {
	if err := cfg.Validate(); err != nil {
		return service.Backend{}, err
	}

	switch cfg.Backend {
	case config.BackendLocal:
		if err := cfg.EnsureDir(); err != nil {
			return service.Backend{}, fmt.Errorf("failed to create config directory: %w", err)
		}
		store, err := local.Open(cfg.LocalDBPath())
		if err != nil {
			return service.Backend{}, err
		}
		identity, err := local.NewIdentity(ctx, store, cfg.Local.Secret, cfg.SessionPath())
		if err != nil {
			_ = store.Close()
			return service.Backend{}, err
		}
		return service.Backend{
			Identity:  identity,
			Documents: local.NewDocuments(store, identity, task.FieldOwner),
			Close:     store.Close,
		}, nil

	default:
		identity, docs, err := firebase.New(ctx, firebase.Options{
			APIKey:      cfg.Firebase.APIKey,
			ProjectID:   cfg.Firebase.ProjectID,
			Database:    cfg.Firebase.Database,
			SessionPath: cfg.SessionPath(),
			Timeout:     cfg.Timeout,
		})
		if err != nil {
			return service.Backend{}, err
		}
		return service.Backend{Identity: identity, Documents: docs}, nil
	}
}
