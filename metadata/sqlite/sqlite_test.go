package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/visionmesh/metadata"
	"github.com/hupe1980/visionmesh/vlm"
)

// Interface compliance (compile-time assertion)
var _ metadata.Sink = (*Sink)(nil)

func newTestSink(t *testing.T) *Sink {
	t.Helper()
	s, err := NewSink(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSink_PublishAndRecent(t *testing.T) {
	s := newTestSink(t)
	ctx := context.Background()

	base := time.Now()
	require.NoError(t, s.Publish(ctx, metadata.Result{
		CorrelationID: "a", Ego: "alert", Text: "no", CreatedAt: base,
		Usage: &vlm.Usage{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12},
	}))
	require.NoError(t, s.Publish(ctx, metadata.Result{
		CorrelationID: "b", Ego: "alert", Text: "yes", CreatedAt: base.Add(time.Second),
	}))
	require.NoError(t, s.Publish(ctx, metadata.Result{
		CorrelationID: "c", Ego: "caption", Text: "a quiet street", CreatedAt: base.Add(2 * time.Second),
	}))

	results, err := s.Recent(ctx, "alert", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	// Newest first.
	assert.Equal(t, "b", results[0].CorrelationID)
	assert.Nil(t, results[0].Usage)
	assert.Equal(t, "a", results[1].CorrelationID)
	require.NotNil(t, results[1].Usage)
	assert.Equal(t, 12, results[1].Usage.TotalTokens)

	all, err := s.Recent(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "c", all[0].CorrelationID)
}

func TestSink_DuplicateCorrelationIDRejected(t *testing.T) {
	s := newTestSink(t)
	ctx := context.Background()

	res := metadata.Result{CorrelationID: "a", Ego: "alert", Text: "no", CreatedAt: time.Now()}
	require.NoError(t, s.Publish(ctx, res))
	assert.Error(t, s.Publish(ctx, res))
}
