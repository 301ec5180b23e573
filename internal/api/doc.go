// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

/*
Package api exposes Authtrail over HTTP using chi.

Routes:

	GET    /healthz                                         liveness
	GET    /metrics                                         Prometheus
	POST   /v1/events                                       publish an authentication event
	GET    /v1/principals/{type}/{id}/stats                 login statistics
	GET    /v1/principals/{type}/{id}/sessions              active sessions
	DELETE /v1/principals/{type}/{id}/sessions/{sessionID}  revoke one session
	GET    /v1/principals/{type}/{id}/devices               known devices
	POST   /v1/principals/{type}/{id}/devices/{deviceID}/trust
	POST   /v1/principals/{type}/{id}/devices/{deviceID}/untrust

Events are validated and handed to the bus; the handler answers 202 before
the correlator has seen them. Errors are JSON objects with an "error" field.
*/
package api
