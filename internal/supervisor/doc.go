// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

/*
Package supervisor runs Authtrail's long-lived components under a suture v4
supervision tree.

	authtrail (root)
	├── storage-layer    Badger value log GC
	├── messaging-layer  Watermill router feeding the correlator
	└── api-layer        HTTP server

A crashing child is restarted with backoff by its layer supervisor; the other
layers keep running. Supervisor events are logged through sutureslog using
the zerolog-backed slog logger from the logging package.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddMessagingService(services.NewRouterService(router))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	err = tree.Serve(ctx)

The wrappers in the services subpackage adapt blocking or Start/Stop style
components to suture.Service.
*/
package supervisor
