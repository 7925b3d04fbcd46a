package grpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

var errNotServing = errors.New("not serving")

// RegisterHealth adds a health service to gs reporting the server and each
// named service as SERVING. Shutdown on the returned server flips them all
// to NOT_SERVING.
func RegisterHealth(gs *gogrpc.Server, services ...string) *health.Server {
	hs := health.NewServer()
	for _, name := range append([]string{""}, services...) {
		hs.SetServingStatus(name, grpc_health_v1.HealthCheckResponse_SERVING)
	}
	grpc_health_v1.RegisterHealthServer(gs, hs)
	return hs
}

// WaitForHealth polls the health of service on conn until it is SERVING or
// ctx ends.
func WaitForHealth(ctx context.Context, conn gogrpc.ClientConnInterface, service string, logf func(string, ...any)) error {
	if conn == nil {
		return errors.New("gRPC connection is not configured")
	}

	healthClient := grpc_health_v1.NewHealthClient(conn)
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = time.Second
	policy.RandomizationFactor = 0

	check := func() (grpc_health_v1.HealthCheckResponse_ServingStatus, error) {
		callCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		response, err := healthClient.Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: service})
		if err != nil {
			return grpc_health_v1.HealthCheckResponse_UNKNOWN, err
		}
		if response.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
			return response.GetStatus(), fmt.Errorf("%w: %s", errNotServing, response.GetStatus())
		}
		return response.GetStatus(), nil
	}
	notify := func(err error, next time.Duration) {
		if logf != nil {
			logf("waiting for %q: %v (retry in %s)", service, err, next)
		}
	}

	if _, err := backoff.Retry(ctx, check,
		backoff.WithBackOff(policy),
		backoff.WithNotify(notify),
	); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("wait for %q health: %w", service, ctxErr)
		}
		return fmt.Errorf("wait for %q health: %w", service, err)
	}
	return nil
}
