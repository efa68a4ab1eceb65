package tracer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"
)

func TestNewClientWithoutExport(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := NewMockLogger(ctrl)
	log.EXPECT().Info("tracer initialised", nil, gomock.Any())

	tr := NewClient(Config{ServiceName: "svc", AppEnv: "test"}, log)
	require.NotNil(t, tr)

	ctx, span := tr.StartSpan(context.Background(), "op")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	carrier := tr.GetCarrier(ctx)
	assert.Contains(t, carrier, "traceparent")

	restored := tr.SetCarrierOnContext(context.Background(), carrier)
	assert.NotNil(t, restored)

	require.NoError(t, tr.Shutdown(context.Background()))
}

func TestRecordErrorAndAttributes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tr := &Tracer{provider: tp}

	_, span := tr.StartSpan(context.Background(), "failing")
	tr.SetAttributes(span, map[string]interface{}{
		"plugin": "math",
		"count":  2,
		"ok":     false,
		"names":  []string{"a", "b"},
		"other":  struct{ A int }{A: 1},
	})
	tr.RecordErrorOnSpan(span, errors.New("boom"))
	RecordError(span, nil)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "boom", ended[0].Status().Description)
	assert.Contains(t, ended[0].Attributes(), attribute.String("plugin", "math"))
	assert.Contains(t, ended[0].Attributes(), attribute.Int("count", 2))
	assert.Contains(t, ended[0].Attributes(), attribute.String("other", "{1}"))
}
