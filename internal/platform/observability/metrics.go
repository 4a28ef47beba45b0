package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "finitefield.org/taskboard"

// Metrics groups the instruments recorded by the API services. The zero value is
// usable and records nothing.
type Metrics struct {
	todoMutations metric.Int64Counter
	imageUploads  metric.Int64Counter
	imageBytes    metric.Int64Histogram
}

// NewMetrics registers instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	mutations, err := meter.Int64Counter("taskboard.todo.mutations",
		metric.WithDescription("Todo create/update/delete operations"))
	if err != nil {
		return nil, err
	}
	uploads, err := meter.Int64Counter("taskboard.image.uploads",
		metric.WithDescription("Image uploads by outcome"))
	if err != nil {
		return nil, err
	}
	bytes, err := meter.Int64Histogram("taskboard.image.bytes",
		metric.WithDescription("Size of uploaded images"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, err
	}
	return &Metrics{todoMutations: mutations, imageUploads: uploads, imageBytes: bytes}, nil
}

// TodoMutation records one todo write.
func (m *Metrics) TodoMutation(ctx context.Context, op string) {
	if m == nil || m.todoMutations == nil {
		return
	}
	m.todoMutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// ImageUpload records an upload attempt and, when it succeeded, its size.
func (m *Metrics) ImageUpload(ctx context.Context, outcome string, size int64) {
	if m == nil || m.imageUploads == nil {
		return
	}
	m.imageUploads.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	if outcome == "ok" && m.imageBytes != nil {
		m.imageBytes.Record(ctx, size)
	}
}
