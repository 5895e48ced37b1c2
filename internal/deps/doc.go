// Package deps reports whether the external programs and libraries accentid
// needs (ffmpeg, ffprobe, ONNX Runtime) are available.
package deps
