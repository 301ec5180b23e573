// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/authtrail/internal/config"
)

// HandlerName is the name of the correlator consumer on the router.
const HandlerName = "correlator"

// NewRouter creates a Watermill router consuming cfg.Topic from sub into h.
//
// Middleware, outer to inner:
//  1. Recoverer turns handler panics into errors
//  2. Retry re-runs failed messages with exponential backoff
func NewRouter(cfg config.EventsConfig, sub message.Subscriber, h *Handler, logger watermill.LoggerAdapter) (*message.Router, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	router.AddMiddleware(middleware.Recoverer)

	interval := cfg.RetryInitialInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	retry := middleware.Retry{
		MaxRetries:      cfg.RetryMaxRetries,
		InitialInterval: interval,
		MaxInterval:     10 * interval,
		Multiplier:      2.0,
		Logger:          logger,
	}
	router.AddMiddleware(retry.Middleware)

	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	router.AddConsumerHandler(HandlerName, topic, sub, h.Handle)

	return router, nil
}
