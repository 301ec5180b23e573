// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package services

import (
	"context"
	"fmt"
)

// MessageRouter is the part of *message.Router the service drives.
type MessageRouter interface {
	Run(ctx context.Context) error
	Close() error
}

// RouterService runs the Watermill router that delivers bus messages to the
// correlator. Run returns once ctx is canceled and in-flight handlers finish
// (bounded by the router's CloseTimeout).
type RouterService struct {
	router MessageRouter
	name   string
}

// NewRouterService wraps router.
func NewRouterService(router MessageRouter) *RouterService {
	return &RouterService{router: router, name: "event-router"}
}

// Serve implements suture.Service. A router that exits while ctx is still
// live is reported as a failure.
func (s *RouterService) Serve(ctx context.Context) error {
	err := s.router.Run(ctx)
	if ctx.Err() != nil {
		_ = s.router.Close()
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("event router failed: %w", err)
	}
	return fmt.Errorf("event router stopped unexpectedly")
}

// String implements fmt.Stringer for suture's logs.
func (s *RouterService) String() string {
	return s.name
}
