// Package grpc holds dial and health helpers for the remote player transport.
package grpc

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Target is a gRPC service to reach.
type Target struct {
	Addr string
	// Service must report SERVING before Dial returns. Empty checks the
	// server as a whole.
	Service string
}

func (t Target) String() string {
	if t.Service == "" {
		return t.Addr
	}
	return t.Service + "@" + t.Addr
}

// DialConfig tunes Dial.
type DialConfig struct {
	// Timeout bounds the wait for the service to become healthy. Zero waits
	// as long as ctx allows.
	Timeout time.Duration
	Logf    func(string, ...any)
	// Options replaces ClientOptions when set.
	Options []gogrpc.DialOption
}

// DialStage describes where a dial attempt failed.
type DialStage string

const (
	DialStageConnect DialStage = "connect"
	DialStageHealth  DialStage = "health"
)

// DialError wraps a failed Dial with the target and stage.
type DialError struct {
	Target Target
	Stage  DialStage
	Err    error
}

func (e *DialError) Error() string {
	return fmt.Sprintf("dial %s (%s): %v", e.Target, e.Stage, e.Err)
}

func (e *DialError) Unwrap() error { return e.Err }

// ClientOptions returns the dial options of remote player clients. Calls
// carry trace context once a TracerProvider is set.
func ClientOptions() []gogrpc.DialOption {
	return []gogrpc.DialOption{
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
		gogrpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
}

// ServerOptions returns the server options shared by battle services.
func ServerOptions(extra ...gogrpc.ServerOption) []gogrpc.ServerOption {
	opts := []gogrpc.ServerOption{
		gogrpc.StatsHandler(otelgrpc.NewServerHandler()),
	}
	return append(opts, extra...)
}

// Dial connects to target and waits until its health check serves. The
// connection is closed when the service never becomes healthy.
func Dial(ctx context.Context, target Target, cfg DialConfig) (*gogrpc.ClientConn, error) {
	opts := cfg.Options
	if opts == nil {
		opts = ClientOptions()
	}
	conn, err := gogrpc.NewClient(target.Addr, opts...)
	if err != nil {
		return nil, &DialError{Target: target, Stage: DialStageConnect, Err: err}
	}

	waitCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	if err := WaitForHealth(waitCtx, conn, target.Service, cfg.Logf); err != nil {
		_ = conn.Close()
		return nil, &DialError{Target: target, Stage: DialStageHealth, Err: err}
	}
	return conn, nil
}
