// Package vst is a thin client for the Video Storage Toolkit REST API. It is
// consumed outside the dispatch core to discover and register the RTSP
// streams that feed the frame source.
//
// Only the endpoints the system needs are wrapped: listing live streams,
// adding/removing sensors and resolving a sensor id by name. Failures adding
// a stream (name conflict, unreachable source) surface as *StreamAddError.
package vst
