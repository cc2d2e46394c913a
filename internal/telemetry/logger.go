package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// InitLoggerProvider initializes the OpenTelemetry logger provider.
// It configures an OTLP gRPC exporter and returns a slog.Logger that
// bridges to OpenTelemetry for log-trace correlation. With export disabled
// the returned logger writes JSON to stdout instead.
func InitLoggerProvider(ctx context.Context, s Settings) (*sdklog.LoggerProvider, *slog.Logger, error) {
	res, err := newResource(s)
	if err != nil {
		return nil, nil, err
	}

	opts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}

	if s.Export {
		conn, err := newConn(s)
		if err != nil {
			return nil, nil, err
		}

		exporter, err := otlploggrpc.New(ctx, otlploggrpc.WithGRPCConn(conn))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create log exporter: %w", err)
		}
		opts = append(opts, sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)))
	}

	lp := sdklog.NewLoggerProvider(opts...)
	global.SetLoggerProvider(lp)

	if !s.Export {
		return lp, slog.New(slog.NewJSONHandler(os.Stdout, nil)), nil
	}

	// The bridge attaches trace and span IDs from the context to each record.
	logger := otelslog.NewLogger(s.ServiceName, otelslog.WithLoggerProvider(lp))

	return lp, logger, nil
}
