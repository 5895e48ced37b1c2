package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"accentid/internal/accent"
	"accentid/internal/classify"
	"accentid/internal/extract"
	"accentid/internal/fetch"
	"accentid/internal/pipeline"
	"accentid/internal/services"
	"accentid/internal/testsupport"
)

type analyzerFunc func(ctx context.Context, url string) (accent.Result, error)

func (f analyzerFunc) AnalyzeURL(ctx context.Context, url string) (accent.Result, error) {
	return f(ctx, url)
}

func sampleResult() accent.Result {
	probs := make([]float64, accent.Count)
	probs[3] = 0.875
	probs[0] = 0.125
	return accent.NewResult(accent.Labels()[3], 0.875, probs)
}

func newTestServer(t *testing.T, analyzer Analyzer) *Server {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return New(cfg, analyzer, nil, nil)
}

func post(t *testing.T, h http.Handler, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandleAnalyzeSuccess(t *testing.T) {
	var gotURL, gotID string
	srv := newTestServer(t, analyzerFunc(func(ctx context.Context, url string) (accent.Result, error) {
		gotURL = url
		gotID, _ = services.RequestIDFromContext(ctx)
		return sampleResult(), nil
	}))

	w := post(t, srv.Handler(), `{"url":"https://example.com/v.mp4"}`, RequestIDHeader, "req-1")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if gotURL != "https://example.com/v.mp4" {
		t.Fatalf("unexpected url passed to analyzer: %q", gotURL)
	}
	if gotID != "req-1" {
		t.Fatalf("expected caller request id, got %q", gotID)
	}

	var resp AnalyzeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	want := sampleResult()
	if resp.Accent != want.Accent || resp.Confidence != 87.5 || resp.Summary != want.Summary {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.RequestID != "req-1" {
		t.Fatalf("expected request id echoed, got %q", resp.RequestID)
	}
	if resp.Distribution != nil {
		t.Fatalf("distribution should be omitted unless requested")
	}
	if !strings.Contains(w.Body.String(), `"accent":`) || strings.Contains(w.Body.String(), "probabilities") {
		t.Fatalf("unexpected wire shape: %s", w.Body.String())
	}
}

func TestHandleAnalyzeDistribution(t *testing.T) {
	srv := newTestServer(t, analyzerFunc(func(context.Context, string) (accent.Result, error) {
		return sampleResult(), nil
	}))

	w := post(t, srv.Handler(), `{"url":"https://example.com/v.mp4","distribution":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp AnalyzeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Distribution) != accent.Count {
		t.Fatalf("expected %d scores, got %d", accent.Count, len(resp.Distribution))
	}
	if resp.Distribution[0].Label != string(accent.Labels()[0]) || resp.Distribution[0].Confidence != 12.5 {
		t.Fatalf("unexpected first score: %+v", resp.Distribution[0])
	}
	if resp.Distribution[3].Confidence != 87.5 {
		t.Fatalf("unexpected winning score: %+v", resp.Distribution[3])
	}
}

func TestHandleAnalyzeGeneratesRequestID(t *testing.T) {
	srv := newTestServer(t, analyzerFunc(func(ctx context.Context, _ string) (accent.Result, error) {
		if _, ok := services.RequestIDFromContext(ctx); !ok {
			t.Error("expected request id in context")
		}
		return sampleResult(), nil
	}))
	w := post(t, srv.Handler(), `{"url":"https://example.com/v.mp4"}`)
	var resp AnalyzeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RequestID == "" {
		t.Fatal("expected generated request id")
	}
}

func TestHandleAnalyzeErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"invalid", &pipeline.InvalidRequestError{Reason: "url is empty"}, http.StatusBadRequest, pipeline.KindInvalidRequest},
		{"fetch", &fetch.Error{URL: "u", StatusCode: 404, Err: errors.New("status 404")}, http.StatusBadGateway, pipeline.KindFetch},
		{"no audio", &extract.NoAudioStreamError{Path: "x.media"}, http.StatusUnprocessableEntity, pipeline.KindNoAudioStream},
		{"transcode", &extract.TranscodeError{Tool: "ffmpeg", ExitCode: 1, Err: errors.New("exit status 1")}, http.StatusUnprocessableEntity, pipeline.KindTranscode},
		{"classification", &classify.Error{Op: "forward", Err: errors.New("boom")}, http.StatusInternalServerError, pipeline.KindClassification},
		{"fault", &pipeline.StageFault{Stage: pipeline.StageClassify, Value: "panic"}, http.StatusInternalServerError, pipeline.KindInternal},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, analyzerFunc(func(context.Context, string) (accent.Result, error) {
				return accent.Result{}, fmt.Errorf("wrapped: %w", tc.err)
			}))
			w := post(t, srv.Handler(), `{"url":"https://example.com/v.mp4"}`)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, w.Code)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Kind != tc.kind {
				t.Fatalf("expected kind %q, got %q", tc.kind, resp.Kind)
			}
			if resp.Error == "" {
				t.Fatal("expected error message")
			}
		})
	}
}

func TestHandleAnalyzeRejectsBadBodies(t *testing.T) {
	called := false
	srv := newTestServer(t, analyzerFunc(func(context.Context, string) (accent.Result, error) {
		called = true
		return sampleResult(), nil
	}))
	for _, body := range []string{"", "{", `{"url": 5}`, `{"link":"x"}`} {
		w := post(t, srv.Handler(), body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, w.Code)
		}
		if !strings.Contains(w.Body.String(), pipeline.KindInvalidRequest) {
			t.Fatalf("body %q: expected invalid_request kind, got %s", body, w.Body.String())
		}
	}
	if called {
		t.Fatal("analyzer should not run for malformed bodies")
	}
}

func TestHandleAnalyzeMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, analyzerFunc(func(context.Context, string) (accent.Result, error) {
		return sampleResult(), nil
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/analyze", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestHandleAnalyzeWaitsForSlot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.API.MaxConcurrent = 1

	started := make(chan struct{})
	release := make(chan struct{})
	srv := New(cfg, analyzerFunc(func(context.Context, string) (accent.Result, error) {
		close(started)
		<-release
		return sampleResult(), nil
	}), nil, nil)
	h := srv.Handler()

	var wg sync.WaitGroup
	wg.Add(1)
	var first *httptest.ResponseRecorder
	go func() {
		defer wg.Done()
		first = post(t, h, `{"url":"https://example.com/a.mp4"}`)
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"url":"https://example.com/b.mp4"}`)).WithContext(ctx)
	second := httptest.NewRecorder()
	h.ServeHTTP(second, req)
	if second.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while waiting, got %d", second.Code)
	}
	if !strings.Contains(second.Body.String(), KindUnavailable) {
		t.Fatalf("unexpected body: %s", second.Body.String())
	}

	close(release)
	wg.Wait()
	if first.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", first.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.API.Token = "secret"
	srv := New(cfg, analyzerFunc(func(context.Context, string) (accent.Result, error) {
		return sampleResult(), nil
	}), nil, nil)

	w := post(t, srv.Handler(), `{"url":"https://example.com/v.mp4"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	w = post(t, srv.Handler(), `{"url":"https://example.com/v.mp4"}`, "Authorization", "Bearer wrong")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}
	w = post(t, srv.Handler(), `{"url":"https://example.com/v.mp4"}`, "Authorization", "Bearer secret")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	srv := New(cfg, nil, func(context.Context) Status {
		return Status{
			Model:        ModelStatus{ID: cfg.Model.ID, Revision: cfg.Model.Revision},
			Dependencies: []DependencyStatus{{Name: "FFmpeg", Command: "ffmpeg", Available: true}},
		}
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp Status
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Model.ID != cfg.Model.ID {
		t.Fatalf("unexpected model id %q", resp.Model.ID)
	}
	if len(resp.Labels) != accent.Count || resp.Labels[0] != string(accent.Labels()[0]) {
		t.Fatalf("unexpected labels: %v", resp.Labels)
	}
	if resp.MaxConcurrent != cfg.API.MaxConcurrent || resp.InFlight != 0 {
		t.Fatalf("unexpected concurrency fields: %+v", resp)
	}
	if len(resp.Dependencies) != 1 || !resp.Dependencies[0].Available {
		t.Fatalf("unexpected dependencies: %+v", resp.Dependencies)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/status", nil)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestServerStartAndShutdown(t *testing.T) {
	srv := newTestServer(t, analyzerFunc(func(context.Context, string) (accent.Result, error) {
		return sampleResult(), nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	resp, err := http.Post("http://"+srv.Addr()+"/api/analyze", "application/json", strings.NewReader(`{"url":"https://example.com/v.mp4"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	cancel()
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get("http://" + srv.Addr() + "/api/status")
		if err != nil {
			break
		}
		resp.Body.Close()
		if time.Now().After(deadline) {
			t.Fatal("server still accepting connections after shutdown")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestStatusForKind(t *testing.T) {
	if StatusForKind(pipeline.KindModelInitialization) != http.StatusInternalServerError {
		t.Fatal("model initialization should map to 500")
	}
	if StatusForKind("unknown") != http.StatusInternalServerError {
		t.Fatal("unknown kinds should map to 500")
	}
}
