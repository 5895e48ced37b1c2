// Package services defines shared utilities consumed by the pipeline stages and
// their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp request correlation identifiers, stage names,
//     and the analyzed URL for logging.
//   - Structured error markers plus the Wrap helper so configuration, registry,
//     and validation failures can be classified without string matching.
//
// Use these helpers when wiring new stage logic so operational behaviour stays
// uniform across the pipeline.
package services
