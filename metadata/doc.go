// Package metadata defines the boundary through which finished inference
// results leave the core: a Result value (ego name, response text,
// correlation id, usage) handed to a Sink. Serialization format and transport
// are the sink's business.
//
// InMemorySink suits tests and demos. Durable backends live in sub-packages;
// metadata/sqlite persists results to a local database.
package metadata
