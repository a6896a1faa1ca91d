// Package vlm defines the provider-agnostic abstraction for the remote
// vision-language inference endpoint.
//
// Core goals:
//   - One blocking Complete call per request; the dispatcher serializes them
//   - Minimal request/response shapes (system prompt, user prompt, JPEG frame)
//   - Typed failure taxonomy: *EndpointError for transport failures,
//     *MalformedResponseError for unparseable payloads
//   - Lightweight mocking for tests (MockModel)
//
// Providers (OpenAI-compatible chat servers, Anthropic) implement the Model
// interface in sub-packages so the dispatcher stays decoupled from vendor
// SDKs.
package vlm
