// Package openai provides a vlm.Model backed by an OpenAI-compatible chat
// completions endpoint. Local VLM chat servers (llama.cpp, vLLM, Jetson
// microservices) expose the same surface, so this adapter covers both hosted
// and on-device deployments. Frames are embedded as base64 JPEG data URLs.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/visionmesh/vlm"
)

// Options configure the OpenAI model adapter. Fields mirror a subset of chat
// completion parameters intentionally kept minimal.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	// BaseURL points the client at a self-hosted endpoint, e.g.
	// "http://0.0.0.0:8000/v1". Empty uses the SDK default.
	BaseURL string
	APIKey  string
	// HealthURL is probed by Ready. Defaults to BaseURL + "/health" when a
	// BaseURL is set; empty otherwise disables the probe.
	HealthURL string
}

// Model wraps the chat completions API behind the vlm.Model interface.
type Model struct {
	client    *openai.Client
	opts      Options
	healthURL string
	http      *http.Client
}

// NewModel creates a new model using a freshly constructed client.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.2,
		MaxCompletionTokens: 512,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := openai.NewClient(clientOpts...)
	return newModel(&client, opts)
}

// NewModelFromClient creates a new model from an existing client.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.2,
		MaxCompletionTokens: 512,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return newModel(client, opts)
}

func newModel(client *openai.Client, opts Options) *Model {
	healthURL := opts.HealthURL
	if healthURL == "" && opts.BaseURL != "" {
		healthURL = strings.TrimSuffix(opts.BaseURL, "/") + "/health"
	}
	return &Model{client: client, opts: opts, healthURL: healthURL, http: &http.Client{}}
}

// Complete implements vlm.Model with a single blocking chat completion call.
func (m *Model) Complete(ctx context.Context, req vlm.Request) (*vlm.Response, error) {
	var userMessage openai.ChatCompletionMessageParamUnion
	if len(req.Image) > 0 {
		dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(req.Image)
		parts := []openai.ChatCompletionContentPartUnionParam{
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			openai.TextContentPart(req.Prompt),
		}
		userMessage = openai.UserMessage(parts)
	} else {
		userMessage = openai.UserMessage(req.Prompt)
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			userMessage,
		},
		Model:               m.opts.Model,
		Temperature:         openai.Float(m.opts.Temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, &vlm.EndpointError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &vlm.MalformedResponseError{Detail: "no choices returned"}
	}

	out := &vlm.Response{Text: vlm.CleanText(resp.Choices[0].Message.Content)}
	if resp.Usage.TotalTokens > 0 {
		out.Usage = &vlm.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		}
	}
	return out, nil
}

// Ready implements vlm.HealthChecker by probing the endpoint's health URL.
func (m *Model) Ready(ctx context.Context) error {
	if m.healthURL == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.healthURL, nil)
	if err != nil {
		return err
	}
	resp, err := m.http.Do(req)
	if err != nil {
		return &vlm.EndpointError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &vlm.EndpointError{Err: errors.New("health endpoint returned " + resp.Status)}
	}
	return nil
}

// Info returns metadata describing this model implementation.
func (m *Model) Info() vlm.Info {
	return vlm.Info{Name: m.opts.Model, Provider: "openai"}
}
