package api

import (
	"accentid/internal/accent"
	"accentid/internal/deps"
)

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	URL string `json:"url"`
	// Distribution asks for every label's probability in the response.
	Distribution bool `json:"distribution,omitempty"`
}

// AnalyzeResponse carries the three result fields rendered by clients.
type AnalyzeResponse struct {
	Accent       string       `json:"accent"`
	Confidence   float64      `json:"confidence"`
	Summary      string       `json:"summary"`
	RequestID    string       `json:"requestId,omitempty"`
	Distribution []LabelScore `json:"distribution,omitempty"`
}

// LabelScore is one entry of the probability distribution.
type LabelScore struct {
	Label      string  `json:"label"`
	Accent     string  `json:"accent"`
	Confidence float64 `json:"confidence"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	RequestID string `json:"requestId,omitempty"`
}

// ModelStatus identifies the loaded model.
type ModelStatus struct {
	ID       string `json:"id"`
	Revision string `json:"revision"`
	Dir      string `json:"dir,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// Status is the body of GET /api/status.
type Status struct {
	Model         ModelStatus        `json:"model"`
	Labels        []string           `json:"labels"`
	Dependencies  []DependencyStatus `json:"dependencies"`
	MaxConcurrent int                `json:"maxConcurrent"`
	InFlight      int                `json:"inFlight"`
}

// FromResult converts a classification result for transport.
func FromResult(result accent.Result, withDistribution bool) AnalyzeResponse {
	resp := AnalyzeResponse{
		Accent:     result.Accent,
		Confidence: result.Confidence,
		Summary:    result.Summary,
	}
	if withDistribution {
		for _, score := range result.Distribution() {
			resp.Distribution = append(resp.Distribution, LabelScore{
				Label:      string(score.Label),
				Accent:     score.Label.Display(),
				Confidence: accent.RoundConfidence(score.Probability),
			})
		}
	}
	return resp
}

// FromDependencies converts dependency checks for transport.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, len(statuses))
	for i, dep := range statuses {
		out[i] = DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	return out
}

// LabelNames returns the fixed label order as strings.
func LabelNames() []string {
	labels := accent.Labels()
	out := make([]string, len(labels))
	for i, label := range labels {
		out[i] = string(label)
	}
	return out
}
