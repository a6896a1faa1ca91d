package visionmesh

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/visionmesh/alert"
	"github.com/hupe1980/visionmesh/bridge"
	"github.com/hupe1980/visionmesh/dispatch"
	"github.com/hupe1980/visionmesh/ego"
	"github.com/hupe1980/visionmesh/frame"
	"github.com/hupe1980/visionmesh/metadata"
	"github.com/hupe1980/visionmesh/vlm"
	"github.com/hupe1980/visionmesh/worker"
)

func TestVisionMesh_EndToEnd(t *testing.T) {
	model := vlm.NewMockModel()
	model.AddResponse("is there a fire?", "no")

	holder := frame.NewLatestHolder()
	holder.Publish(frame.Frame{Data: []byte("jpeg"), Timestamp: time.Now()})
	sink := metadata.NewInMemorySink()

	m := New(model, func(o *Options) {
		o.Source = holder
		o.Sink = sink
	})

	// The ego callback answers the originating command over the bridge,
	// turning a fire-and-forget inference into a synchronous façade route.
	err := m.RegisterEgo("alert", "Answer yes or no", func(res ego.Result) {
		cmd := res.Params["command"].(*bridge.Command)
		if res.Err != nil {
			_ = cmd.Reply(res.Err)
			return
		}
		_ = cmd.Reply(res.Text)
	}, nil)
	require.NoError(t, err)

	m.RegisterHandler("detect", func(_ context.Context, w *worker.Worker, cmd *bridge.Command) (any, error) {
		prompt, _ := cmd.Payload().(string)
		f, _ := w.Latest()
		_, err := w.Dispatcher().Submit("alert", prompt, f, func(o *dispatch.CallOptions) {
			o.Params = map[string]any{"command": cmd}
		})
		if err != nil {
			return nil, err
		}
		return nil, worker.ErrReplyDeferred
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	// Two façade goroutines issue commands concurrently; each must get
	// exactly its own reply.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		value, err := m.Send("detect", "is there a fire?", 2*time.Second)
		assert.NoError(t, err)
		assert.Equal(t, "no", value)
	}()
	go func() {
		defer wg.Done()
		value, err := m.Send(worker.VerbQueryStatus, nil, 2*time.Second)
		assert.NoError(t, err)
		st, ok := value.(worker.Status)
		assert.True(t, ok)
		assert.Equal(t, []string{"alert"}, st.Egos)
	}()
	wg.Wait()

	require.Eventually(t, func() bool { return len(sink.Results()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, "no", sink.Results()[0].Text)
}

func TestVisionMesh_AlertRuleStatesFromDetections(t *testing.T) {
	model := vlm.NewMockModel()
	model.AddResponse("is there a fire?", "Yes, flames near the door")

	monitor := alert.NewMonitor()
	monitor.SetRules(map[string]string{"r0": "is there a fire?"})

	m := New(model)
	err := m.RegisterEgo("alert", "Answer yes or no", func(res ego.Result) {
		rule := res.Params["rule"].(string)
		if res.Err == nil {
			active := strings.HasPrefix(strings.ToLower(res.Text), "yes")
			monitor.SetStates(map[string]bool{rule: active})
		}
		cmd := res.Params["command"].(*bridge.Command)
		_ = cmd.Reply(res.Text)
	}, nil)
	require.NoError(t, err)

	m.RegisterHandler("detect", func(_ context.Context, w *worker.Worker, cmd *bridge.Command) (any, error) {
		rule, _ := cmd.Payload().(string)
		query, ok := monitor.Rule(rule)
		require.True(t, ok)
		_, err := w.Dispatcher().Submit("alert", query.Query, nil, func(o *dispatch.CallOptions) {
			o.Params = map[string]any{"command": cmd, "rule": rule}
		})
		if err != nil {
			return nil, err
		}
		return nil, worker.ErrReplyDeferred
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	value, err := m.Send("detect", "r0", 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "Yes, flames near the door", value)

	r0, ok := monitor.Rule("r0")
	require.True(t, ok)
	assert.True(t, r0.Active)
	assert.True(t, r0.Cooldown)
}

func TestVisionMesh_DuplicateEgo(t *testing.T) {
	m := New(vlm.NewMockModel())

	require.NoError(t, m.RegisterEgo("alert", "p", nil, nil))
	err := m.RegisterEgo("alert", "p", nil, nil)
	var dup *ego.DuplicateEgoError
	assert.ErrorAs(t, err, &dup)
}

func TestVisionMesh_SubmitWithoutWorkerTimesOutCommandsOnly(t *testing.T) {
	m := New(vlm.NewMockModel())
	require.NoError(t, m.RegisterEgo("alert", "p", nil, nil))

	// Submit never blocks even with no consumer running.
	req, err := m.Submit("alert", "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, dispatch.StateQueued, req.State())

	// Send enforces its mandatory timeout instead of deadlocking.
	_, err = m.Send(worker.VerbQueryStatus, nil, 30*time.Millisecond)
	var toErr *bridge.CommandTimeoutError
	assert.ErrorAs(t, err, &toErr)
}
