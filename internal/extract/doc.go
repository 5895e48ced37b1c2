// Package extract isolates the audio track of a fetched media file.
//
// The FFmpeg extractor probes the container with ffprobe, refuses inputs that
// carry no audio stream, then transcodes the first audio stream to a mono
// 16 kHz signed 16-bit little-endian WAV file. Both external tools run through
// an injectable runner so tests never need real binaries.
package extract
