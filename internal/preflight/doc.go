// Package preflight provides readiness checks for the directories and
// external dependencies accentid relies on.
//
// The serve command runs RunAll before loading the model and refuses to
// start when a required check fails. The status command renders the same
// results alongside dependency availability.
package preflight
