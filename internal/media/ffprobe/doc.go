// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe through a Runner so tests can substitute canned output.
// Result helpers answer the questions the extractor asks before transcoding:
// whether any audio stream exists and how long the container is.
package ffprobe
