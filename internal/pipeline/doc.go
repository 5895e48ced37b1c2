// Package pipeline sequences fetch, extract, and classify for one URL.
//
// Analyzer.AnalyzeURL is the single entry point used by the CLI and the HTTP
// API. Each temporary file is released by a defer registered immediately
// after the stage that created it returns, so no request leaves files behind
// regardless of how it ends. Stage errors are returned unmodified; ErrorKind
// maps them to stable strings for presentation.
package pipeline
