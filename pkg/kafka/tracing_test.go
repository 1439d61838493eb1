package kafka

import (
	"context"
	"sort"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestKafkaHeaderCarrier_SetAndGet(t *testing.T) {
	msg := kafka.Message{Headers: []kafka.Header{{Key: "existing", Value: []byte("value1")}}}
	carrier := NewHeaderCarrier(&msg)

	assert.Equal(t, "value1", carrier.Get("existing"))
	assert.Empty(t, carrier.Get("missing"))

	carrier.Set("new-key", "new-value")
	carrier.Set("existing", "updated")

	assert.Equal(t, "new-value", carrier.Get("new-key"))
	assert.Equal(t, "updated", carrier.Get("existing"))
	assert.Len(t, msg.Headers, 2, "carrier writes through to the message")

	keys := carrier.Keys()
	sort.Strings(keys)
	assert.Equal(t, []string{"existing", "new-key"}, keys)
}

func TestKafkaHeaderCarrier_PropagationRoundTrip(t *testing.T) {
	prop := propagation.TraceContext{}

	traceID, _ := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	spanID, _ := trace.SpanIDFromHex("b7ad6b7169203331")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	var msg kafka.Message
	prop.Inject(ctx, NewHeaderCarrier(&msg))

	extracted := trace.SpanContextFromContext(prop.Extract(context.Background(), NewHeaderCarrier(&msg)))
	assert.Equal(t, traceID, extracted.TraceID())
	assert.Equal(t, spanID, extracted.SpanID())
}
