package worker

import (
	"context"
	"fmt"

	"github.com/hupe1980/visionmesh/bridge"
	"github.com/hupe1980/visionmesh/vst"
)

// RegisterStreamHandlers installs handlers for VerbStartStream and
// VerbStopStream backed by a video-store client. start_stream re-registers
// on a name conflict, so restarting a renamed source is a single command;
// stop_stream resolves the sensor id by name before removal.
func RegisterStreamHandlers(w *Worker, client *vst.Client) {
	w.RegisterHandler(VerbStartStream, func(ctx context.Context, w *Worker, cmd *bridge.Command) (any, error) {
		payload, ok := cmd.Payload().(StartStreamPayload)
		if !ok {
			return nil, fmt.Errorf("start_stream: unexpected payload type %T", cmd.Payload())
		}
		if err := client.ReaddStream(ctx, payload.URL, payload.Name, payload.Location); err != nil {
			return nil, err
		}
		w.logger.Info("stream started", "name", payload.Name, "url", payload.URL)
		return payload.Name, nil
	})

	w.RegisterHandler(VerbStopStream, func(ctx context.Context, w *Worker, cmd *bridge.Command) (any, error) {
		payload, ok := cmd.Payload().(StopStreamPayload)
		if !ok {
			return nil, fmt.Errorf("stop_stream: unexpected payload type %T", cmd.Payload())
		}
		id, err := client.SensorID(ctx, payload.Name)
		if err != nil {
			return nil, err
		}
		if id == "" {
			return nil, fmt.Errorf("no stream named %q", payload.Name)
		}
		if err := client.RemoveStream(ctx, id); err != nil {
			return nil, err
		}
		w.logger.Info("stream stopped", "name", payload.Name, "sensor_id", id)
		return payload.Name, nil
	})
}
