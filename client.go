package football

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"os"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

var ErrNoTemporalAPIKey = errors.New("TEMPORAL_API_KEY environment variable is not set")

// NewLogger installs the text slog handler every binary logs through.
func NewLogger() *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}

// IsLocalTemporal reports whether the host is a local dev server (no TLS, no API key).
func IsLocalTemporal(host string) bool {
	return host == "localhost:7233" || host == "127.0.0.1:7233" || host == "host.docker.internal:7233"
}

func GetClientOptions(cfg Config, logger *slog.Logger) (client.Options, error) {
	clientOptions := client.Options{
		HostPort:  cfg.TemporalHost,
		Namespace: cfg.TemporalNamespace,
		Logger:    tlog.NewStructuredLogger(logger),
	}

	if IsLocalTemporal(cfg.TemporalHost) {
		return clientOptions, nil
	}

	if cfg.TemporalAPIKey == "" {
		return client.Options{}, ErrNoTemporalAPIKey
	}

	namespace := cfg.TemporalNamespace
	clientOptions.ConnectionOptions = client.ConnectionOptions{
		TLS: &tls.Config{},
		DialOptions: []grpc.DialOption{
			grpc.WithUnaryInterceptor(
				func(ctx context.Context, method string, req any, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
					return invoker(
						metadata.AppendToOutgoingContext(ctx, "temporal-namespace", namespace),
						method,
						req,
						reply,
						cc,
						opts...,
					)
				},
			),
		},
	}
	clientOptions.Credentials = client.NewAPIKeyStaticCredentials(cfg.TemporalAPIKey)

	return clientOptions, nil
}
