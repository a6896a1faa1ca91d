package vst

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hupe1980/visionmesh/logging"
)

// Stream describes one live RTSP stream known to VST.
type Stream struct {
	ID   string `json:"streamID"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Sensor describes a registered sensor.
type Sensor struct {
	ID   string `json:"sensorId"`
	Name string `json:"name"`
}

// Options configure the client.
type Options struct {
	HTTPClient *http.Client
	Logger     logging.Logger
}

// Client wraps the VST REST API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  logging.Logger
}

// NewClient constructs a client for the VST server at baseURL, e.g.
// "http://0.0.0.0:81".
func NewClient(baseURL string, optFns ...func(o *Options)) *Client {
	opts := Options{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    opts.HTTPClient,
		logger:  opts.Logger,
	}
}

// substream is the wire shape of one rendition inside a live stream entry.
type substream struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	IsMain bool   `json:"isMain"`
}

// ListStreams returns the main rendition of every live RTSP stream.
func (c *Client) ListStreams(ctx context.Context) ([]Stream, error) {
	body, err := c.get(ctx, "/api/v1/live/streams")
	if err != nil {
		return nil, err
	}

	// The API answers with a list of {streamID: [substreams]} objects.
	var raw []map[string][]substream
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding stream list: %w", err)
	}

	var streams []Stream
	for _, entry := range raw {
		for id, subs := range entry {
			for _, sub := range subs {
				if sub.IsMain && sub.URL != "" {
					streams = append(streams, Stream{ID: id, Name: sub.Name, URL: sub.URL})
				}
			}
		}
	}
	return streams, nil
}

// AddStream registers an RTSP source under name. Name conflicts and
// unreachable sources fail with *StreamAddError.
func (c *Client) AddStream(ctx context.Context, rtspURL, name, location string) error {
	payload, err := json.Marshal(map[string]string{
		"sensorUrl": rtspURL,
		"name":      name,
		"username":  "",
		"password":  "",
		"location":  location,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/sensor/add", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &StreamAddError{Name: name, Reason: "server unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var detail struct {
			ErrorMessage string `json:"error_message"`
		}
		body, _ := io.ReadAll(resp.Body)
		_ = json.Unmarshal(body, &detail)
		reason := detail.ErrorMessage
		if reason == "" {
			reason = resp.Status
		}
		return &StreamAddError{Name: name, Reason: reason, Conflict: isNameConflict(reason)}
	}
	c.logger.Info("stream added", "name", name, "url", rtspURL)
	return nil
}

// RemoveStream deletes a sensor and its associated RTSP stream.
func (c *Client) RemoveStream(ctx context.Context, sensorID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseURL+"/api/v1/sensor/"+sensorID, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("removing sensor %s: %s", sensorID, resp.Status)
	}
	return nil
}

// SensorID resolves a sensor id by name. The empty string with a nil error
// means no sensor carries that name.
func (c *Client) SensorID(ctx context.Context, name string) (string, error) {
	body, err := c.get(ctx, "/api/v1/sensor/list")
	if err != nil {
		return "", err
	}
	var sensors []Sensor
	if err := json.Unmarshal(body, &sensors); err != nil {
		return "", fmt.Errorf("decoding sensor list: %w", err)
	}
	for _, s := range sensors {
		if s.Name == name {
			return s.ID, nil
		}
	}
	return "", nil
}

// ReaddStream adds a stream, and on a name conflict removes the existing
// sensor and adds it again.
func (c *Client) ReaddStream(ctx context.Context, rtspURL, name, location string) error {
	err := c.AddStream(ctx, rtspURL, name, location)
	if err == nil {
		return nil
	}
	addErr, ok := err.(*StreamAddError)
	if !ok || !addErr.Conflict {
		return err
	}

	id, err := c.SensorID(ctx, name)
	if err != nil {
		return err
	}
	if id == "" {
		return addErr
	}
	if err := c.RemoveStream(ctx, id); err != nil {
		return err
	}
	return c.AddStream(ctx, rtspURL, name, location)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func isNameConflict(reason string) bool {
	return strings.Contains(reason, "already exists")
}
