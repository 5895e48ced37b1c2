// Package modelhub retrieves model artifacts from a Hugging Face style
// registry into a local cache.
//
// Artifacts live under <cache>/<owner>--<name>/<revision>/. Downloads hold a
// cross-process file lock on that directory, write to a .partial file, and
// rename into place, so a crashed download never leaves a truncated artifact
// behind. A configured local directory bypasses the registry entirely.
package modelhub
