// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/thejerf/suture/v4"
)

// GCRunner is satisfied by *kvstore.Badger.
type GCRunner interface {
	RunGCLoop(ctx context.Context) error
}

// StoreGCService runs value log garbage collection for the durable store
// until the context is canceled.
type StoreGCService struct {
	store GCRunner
	name  string
}

// NewStoreGCService wraps store.
func NewStoreGCService(store GCRunner) *StoreGCService {
	return &StoreGCService{store: store, name: "store-gc"}
}

// Serve implements suture.Service. An error from the loop other than the
// context's own makes suture restart the service; a loop that ends because
// the store was closed is not restarted.
func (s *StoreGCService) Serve(ctx context.Context) error {
	err := s.store.RunGCLoop(ctx)
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case err == nil:
		return suture.ErrDoNotRestart
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("store gc: %w", err)
}

func (s *StoreGCService) String() string {
	return s.name
}
