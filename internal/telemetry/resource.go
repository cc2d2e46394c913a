package telemetry

import (
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Settings describes the service identity and where telemetry is sent.
type Settings struct {
	ServiceName  string
	Environment  string
	OTLPEndpoint string
	// Export disables all OTLP exporters when false. Providers are still
	// created so instrumentation keeps working without a collector.
	Export bool
}

// instanceID distinguishes replicas of the same service.
var instanceID = uuid.NewString()

func newResource(s Settings) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(s.ServiceName),
			semconv.ServiceInstanceID(instanceID),
			semconv.DeploymentEnvironment(s.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

func newConn(s Settings) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(s.OTLPEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}
	return conn, nil
}
