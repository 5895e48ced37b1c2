// Package api exposes the analysis pipeline over HTTP.
//
// # Endpoints
//
// POST /api/analyze accepts {"url": "..."} and returns the detected accent,
// the rounded confidence, and the summary sentence. Failures are returned as
// {"error": "...", "kind": "..."} where kind is one of the pipeline error
// kinds; the HTTP status follows the kind (400 invalid request, 502 fetch,
// 422 no audio stream or transcode, 503 when the request gave up waiting for
// a slot, 500 otherwise).
//
// GET /api/status reports the model identity, the fixed label order, and the
// availability of the external tools.
//
// # Concurrency
//
// At most api.max_concurrent analyses run at once. Additional requests wait
// for a slot until their context ends. The model forward pass is serialized
// separately inside the classifier.
//
// # Authentication
//
// When api.token is configured every request must carry
// "Authorization: Bearer <token>".
package api
