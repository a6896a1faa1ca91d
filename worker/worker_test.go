package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/visionmesh/bridge"
	"github.com/hupe1980/visionmesh/dispatch"
	"github.com/hupe1980/visionmesh/ego"
	"github.com/hupe1980/visionmesh/frame"
	"github.com/hupe1980/visionmesh/vlm"
	"github.com/hupe1980/visionmesh/vst"
)

type fixture struct {
	registry *ego.Registry
	model    *vlm.MockModel
	bridge   *bridge.Bridge
	d        *dispatch.Dispatcher
	holder   *frame.LatestHolder
	w        *Worker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		registry: ego.NewRegistry(),
		model:    vlm.NewMockModel(),
		bridge:   bridge.New(),
		holder:   frame.NewLatestHolder(),
	}
	f.d = dispatch.New(f.registry, f.model)
	f.w = New(f.bridge, f.d, f.registry, f.model, func(o *Options) {
		o.Source = f.holder
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = f.w.Run(ctx) }()
	t.Cleanup(cancel)
	return f
}

func TestWorker_QueryStatus(t *testing.T) {
	f := newFixture(t)
	_, err := f.registry.Add("alert", "p", nil, nil)
	require.NoError(t, err)
	f.holder.Publish(frame.Frame{Data: []byte("jpeg")})

	value, err := f.bridge.Send(VerbQueryStatus, nil, time.Second)
	require.NoError(t, err)

	st, ok := value.(Status)
	require.True(t, ok)
	assert.Equal(t, []string{"alert"}, st.Egos)
	assert.True(t, st.FrameAvailable)
	assert.False(t, st.InFlight)
	assert.Zero(t, st.QueueDepth)
	// MockModel is not a HealthChecker; no readiness claim is made.
	assert.Nil(t, st.EndpointReady)
}

func TestWorker_SetEgoPrompt(t *testing.T) {
	f := newFixture(t)
	e, err := f.registry.Add("alert", "old", nil, nil)
	require.NoError(t, err)

	value, err := f.bridge.Send(VerbSetEgoPrompt, SetPromptPayload{Ego: "alert", Prompt: "new"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "alert", value)
	assert.Equal(t, "new", e.SystemPrompt())
}

func TestWorker_SetEgoPromptUnknownEgo(t *testing.T) {
	f := newFixture(t)

	value, err := f.bridge.Send(VerbSetEgoPrompt, SetPromptPayload{Ego: "ghost", Prompt: "x"}, time.Second)
	require.NoError(t, err)

	// Handler failures come back as error values for the façade to map.
	replyErr, ok := value.(error)
	require.True(t, ok)
	var unknown *ego.UnknownEgoError
	assert.ErrorAs(t, replyErr, &unknown)
}

func TestWorker_AnalyzeUsesLatestFrame(t *testing.T) {
	f := newFixture(t)
	f.model.AddResponse("is there a fire?", "no")
	f.holder.Publish(frame.Frame{Data: []byte("jpeg")})

	results := make(chan ego.Result, 1)
	_, err := f.registry.Add("alert", "Answer yes or no", func(res ego.Result) {
		results <- res
	}, nil)
	require.NoError(t, err)

	value, err := f.bridge.Send(VerbAnalyze, AnalyzePayload{Ego: "alert", Prompt: "is there a fire?"}, time.Second)
	require.NoError(t, err)
	correlationID, ok := value.(string)
	require.True(t, ok)
	assert.NotEmpty(t, correlationID)

	select {
	case res := <-results:
		assert.NoError(t, res.Err)
		assert.Equal(t, "no", res.Text)
		assert.Equal(t, correlationID, res.CorrelationID)
	case <-time.After(2 * time.Second):
		t.Fatal("callback never fired")
	}

	calls := f.model.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []byte("jpeg"), calls[0].Image)
}

func TestWorker_UnknownVerb(t *testing.T) {
	f := newFixture(t)

	value, err := f.bridge.Send("no_such_verb", nil, time.Second)
	require.NoError(t, err)
	replyErr, ok := value.(error)
	require.True(t, ok)
	assert.Contains(t, replyErr.Error(), "unknown verb")
}

func TestWorker_StreamVerbsDriveVideoStore(t *testing.T) {
	var (
		mu      sync.Mutex
		sensors = map[string]string{}
	)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/sensor/add", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name string `json:"name"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		defer mu.Unlock()
		if _, exists := sensors[body.Name]; exists {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error_message": "User given name is invalid or already exists",
			})
			return
		}
		sensors[body.Name] = "sensor-" + body.Name
	})
	mux.HandleFunc("GET /api/v1/sensor/list", func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		list := []map[string]string{}
		for name, id := range sensors {
			list = append(list, map[string]string{"sensorId": id, "name": name})
		}
		_ = json.NewEncoder(w).Encode(list)
	})
	mux.HandleFunc("DELETE /api/v1/sensor/{id}", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		for name, id := range sensors {
			if id == r.PathValue("id") {
				delete(sensors, name)
			}
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := newFixture(t)
	RegisterStreamHandlers(f.w, vst.NewClient(srv.URL))

	value, err := f.bridge.Send(VerbStartStream, StartStreamPayload{URL: "rtsp://cam", Name: "cam1"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "cam1", value)
	mu.Lock()
	assert.Contains(t, sensors, "cam1")
	mu.Unlock()

	value, err = f.bridge.Send(VerbStopStream, StopStreamPayload{Name: "cam1"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "cam1", value)
	mu.Lock()
	assert.NotContains(t, sensors, "cam1")
	mu.Unlock()
}

func TestWorker_StopStreamUnknownName(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/sensor/list", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]string{})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := newFixture(t)
	RegisterStreamHandlers(f.w, vst.NewClient(srv.URL))

	value, err := f.bridge.Send(VerbStopStream, StopStreamPayload{Name: "ghost"}, time.Second)
	require.NoError(t, err)
	replyErr, ok := value.(error)
	require.True(t, ok)
	assert.Contains(t, replyErr.Error(), "ghost")
}

func TestWorker_DeferredReplyFromCallback(t *testing.T) {
	f := newFixture(t)
	f.model.AddResponse("is there a fire?", "no")

	// An ego whose callback answers the originating command directly.
	_, err := f.registry.Add("alert", "Answer yes or no", func(res ego.Result) {
		cmd := res.Params["command"].(*bridge.Command)
		if res.Err != nil {
			_ = cmd.Reply(res.Err)
			return
		}
		_ = cmd.Reply(res.Text)
	}, nil)
	require.NoError(t, err)

	f.w.RegisterHandler("detect", func(_ context.Context, w *Worker, cmd *bridge.Command) (any, error) {
		prompt, _ := cmd.Payload().(string)
		_, err := w.Dispatcher().Submit("alert", prompt, nil, func(o *dispatch.CallOptions) {
			o.Params = map[string]any{"command": cmd}
		})
		if err != nil {
			return nil, err
		}
		return nil, ErrReplyDeferred
	})

	value, err := f.bridge.Send("detect", "is there a fire?", 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "no", value)
}
