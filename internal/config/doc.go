// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

// Package config loads Authtrail configuration with Koanf v2.
//
// Sources are layered, highest priority last:
//
//  1. Built-in defaults (defaultConfig)
//  2. YAML file: $CONFIG_PATH, ./authtrail.yaml, ./config.yaml, /etc/authtrail/config.yaml
//  3. Environment variables through an explicit mapping (envMappings)
//
// Example file:
//
//	ledger:
//	  driver: duckdb
//	  path: /data/authtrail/ledger.duckdb
//	suspicious:
//	  failed_login_threshold: 5
//	  check_unusual_times: true
//	  usual_hours: [8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18]
//	webhooks:
//	  endpoints:
//	    - url: https://hooks.example.com/auth
//	      events: [new_device, suspicious]
//	      headers:
//	        Authorization: Bearer s3cret
//
// Comma-separated environment values (USUAL_HOURS, WEBHOOK_EVENTS) are split
// into lists before unmarshalling. Load finishes with Validate.
package config
