package metadata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance (compile-time assertion)
var (
	_ Sink = (*InMemorySink)(nil)
	_ Sink = (SinkFunc)(nil)
)

func TestInMemorySink_PublishOrder(t *testing.T) {
	s := NewInMemorySink()
	ctx := context.Background()

	require.NoError(t, s.Publish(ctx, Result{CorrelationID: "a", Ego: "alert", Text: "no", CreatedAt: time.Now()}))
	require.NoError(t, s.Publish(ctx, Result{CorrelationID: "b", Ego: "alert", Text: "yes", CreatedAt: time.Now()}))

	results := s.Results()
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].CorrelationID)
	assert.Equal(t, "b", results[1].CorrelationID)
}

func TestSinkFunc(t *testing.T) {
	var got Result
	s := SinkFunc(func(_ context.Context, res Result) error {
		got = res
		return nil
	})
	require.NoError(t, s.Publish(context.Background(), Result{Ego: "alert"}))
	assert.Equal(t, "alert", got.Ego)
}
