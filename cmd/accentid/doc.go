// Package main hosts the accentid CLI entrypoint and command graph.
//
// The Cobra-based command tree runs a single analysis from the terminal,
// serves the HTTP API, reports dependency and model status, pre-downloads
// model artifacts, and scaffolds configuration. Configuration resolution and
// logger construction live in commandContext so subcommands only describe
// their own flags and output.
//
// Model initialization happens before any analysis or request is accepted; a
// failure there exits the process with status 1.
package main
