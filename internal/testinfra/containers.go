// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultRedisImage is the Redis image used by rate limiter tests.
	DefaultRedisImage = "redis:7-alpine"

	// DefaultMongoImage is the MongoDB image used by ledger tests.
	DefaultMongoImage = "mongo:7"
)

// SkipIfNoDocker skips the test if Docker is not available.
// This allows tests to run gracefully in environments without Docker.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()

	if !IsDockerAvailable() {
		t.Skip("Skipping test: Docker not available")
	}
}

// IsDockerAvailable checks if Docker daemon is running and accessible.
func IsDockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "docker", "info")
	return cmd.Run() == nil
}

// CleanupContainer is a helper for deferred container cleanup that logs errors.
func CleanupContainer(t *testing.T, ctx context.Context, container testcontainers.Container) {
	t.Helper()

	if container != nil {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	}
}

// ServiceContainer is a started container reachable at Endpoint.
type ServiceContainer struct {
	testcontainers.Container

	// Endpoint is the connection URL, e.g. redis://host:port/0.
	Endpoint string
}

// NewRedisContainer starts a Redis server.
//
// Example:
//
//	redis, err := testinfra.NewRedisContainer(ctx)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer testinfra.CleanupContainer(t, ctx, redis)
//	store, err := ratelimit.OpenRedisStore(ctx, redis.Endpoint)
func NewRedisContainer(ctx context.Context) (*ServiceContainer, error) {
	return startService(ctx, DefaultRedisImage, "6379", "redis://%s:%s/0", wait.ForLog("Ready to accept connections"))
}

// NewMongoContainer starts a standalone MongoDB server.
func NewMongoContainer(ctx context.Context) (*ServiceContainer, error) {
	return startService(ctx, DefaultMongoImage, "27017", "mongodb://%s:%s", wait.ForLog("Waiting for connections"))
}

func startService(ctx context.Context, image, port, urlFormat string, ready wait.Strategy) (*ServiceContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        image,
		ExposedPorts: []string{port + "/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(port+"/tcp"),
			ready,
		).WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s container: %w", image, err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get container host: %w", err)
	}

	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped port: %w", err)
	}

	return &ServiceContainer{
		Container: container,
		Endpoint:  fmt.Sprintf(urlFormat, host, mapped.Port()),
	}, nil
}
