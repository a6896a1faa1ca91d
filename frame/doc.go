// Package frame defines the frame snapshot type handed to inference requests
// and the Source boundary through which the worker observes live video.
//
// Capture plumbing (RTSP pipelines, decoders) lives outside this module; a
// capture layer publishes into a LatestHolder and the worker reads the most
// recent frame when it issues a request. Frames are treated as immutable
// after publication.
package frame
