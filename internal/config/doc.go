// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

/*
Package config provides configuration loading for the logship daemon.

Configuration is layered with Koanf v2, each layer overriding the one before:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file, from LOGSHIP_CONFIG or the first of
    DefaultConfigPaths that exists
 3. Environment variables listed in the mapping table

# Sections

  - shipper: pipeline behaviour (collector URL, token, interval, persist
    policy, capacity, framing, stack traces, backoff)
  - transport: delivery mechanism (http or nats), compression, rate limit,
    circuit breaker
  - storage: BadgerDB directory and quota for the durable queue
  - source: where log lines come from (stdin, files)
  - admin: local HTTP endpoint for /metrics, /healthz and /stats
  - logging: the daemon's own zerolog output

# Environment Variables

	LOGSHIP_CONFIG        path to the YAML file
	LOGSHIP_URL           shipper.url
	LOGSHIP_TOKEN         shipper.token
	LOGSHIP_INTERVAL      shipper.interval
	LOGSHIP_TIMEOUT       shipper.timeout
	LOGSHIP_PERSIST       shipper.persist
	LOGSHIP_CAPACITY      shipper.capacity
	LOGSHIP_JSON          shipper.json
	LOGSHIP_TRACE_LEVELS  shipper.trace_levels (comma separated)
	LOGSHIP_TRANSPORT     transport.kind
	LOGSHIP_NATS_URL      transport.nats.url
	LOGSHIP_NATS_SUBJECT  transport.nats.subject
	LOGSHIP_DATA_DIR      storage.path
	LOGSHIP_FILES         source.files (comma separated)
	LOGSHIP_ADMIN_ADDR    admin.addr
	LOG_LEVEL             logging.level
	LOG_FORMAT            logging.format

See envTransformFunc for the full table.

# Validation

Load validates struct tags with go-playground/validator and then applies
cross-field rules, for example that the http transport needs an http(s)
shipper.url. Failures are returned as *ValidationError.
*/
package config
