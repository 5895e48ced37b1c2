package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"accentid/internal/config"
	"accentid/internal/deps"
	"accentid/internal/modelhub"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckModelArtifacts reports whether the model is cached locally or, when it
// is not, whether the registry serves its config file.
func CheckModelArtifacts(ctx context.Context, cfg *config.Config, client *http.Client) Result {
	const name = "Model artifacts"

	hub := modelhub.New(cfg, nil)
	if a, ok := hub.Cached(); ok {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("cached in %s", a.Dir)}
	}
	if cfg.Model.LocalDir != "" {
		return Result{Name: name, Detail: fmt.Sprintf("%s is missing model files", cfg.Model.LocalDir)}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	target := hub.FileURL(modelhub.ConfigFile)
	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, target, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("registry check failed (%v)", err)}
	}
	if token := strings.TrimSpace(cfg.Model.HubToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("registry unreachable (%v)", err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		return Result{Name: name, Passed: true, Detail: "not cached; registry reachable"}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Result{Name: name, Detail: "registry denied access (check model.hub_token)"}
	case resp.StatusCode == http.StatusNotFound:
		return Result{Name: name, Detail: fmt.Sprintf("model %s@%s not found", cfg.Model.ID, cfg.Model.Revision)}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("registry check failed (%d)", resp.StatusCode)}
	}
}

// CheckSystemDeps evaluates the external binaries and libraries the pipeline
// invokes. Both the serve and status commands use it.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Media.FFmpegBinary,
			Description: "Required for audio extraction",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Media.FFprobeBinary,
			Description: "Required for media inspection",
		},
	}
	statuses := deps.CheckBinaries(requirements)
	return append(statuses, deps.CheckONNXRuntime(cfg.Model.ONNXRuntimeLibrary))
}
