// Package ego holds named request profiles binding a system prompt and a
// completion callback to vision-language inference calls.
//
// An Ego is registered once at startup and then referenced by name when
// submitting requests. The registry is safe for concurrent reads from the
// dispatcher goroutine; mutation after startup is limited to prompt
// replacement, which is expected to happen on the worker goroutine via a
// bridge command.
package ego
