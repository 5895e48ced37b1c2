package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Requirement defines an external dependency accentid relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional,omitempty"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Command = resolved
		status.Available = true
		results = append(results, status)
	}
	return results
}

// ONNXRuntimeLibraryName is the platform file name of the runtime library.
func ONNXRuntimeLibraryName() string {
	switch runtime.GOOS {
	case "darwin":
		return "libonnxruntime.dylib"
	case "windows":
		return "onnxruntime.dll"
	default:
		return "libonnxruntime.so"
	}
}

// CheckONNXRuntime reports whether the ONNX Runtime shared library can be
// located. An explicit path must exist; otherwise LD_LIBRARY_PATH and the
// usual system library directories are searched.
func CheckONNXRuntime(explicit string) Status {
	status := Status{
		Name:        "ONNX Runtime",
		Description: "Required for model inference",
	}
	if path := strings.TrimSpace(explicit); path != "" {
		status.Command = path
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			status.Detail = fmt.Sprintf("library %q not found", path)
			return status
		}
		status.Available = true
		return status
	}

	name := ONNXRuntimeLibraryName()
	status.Command = name
	if found, ok := findLibrary(name, librarySearchDirs()); ok {
		status.Command = found
		status.Available = true
		return status
	}
	status.Detail = fmt.Sprintf("%s not found; set model.onnxruntime_library", name)
	return status
}

func librarySearchDirs() []string {
	var dirs []string
	for _, env := range []string{"LD_LIBRARY_PATH", "DYLD_LIBRARY_PATH"} {
		for _, dir := range filepath.SplitList(os.Getenv(env)) {
			if dir != "" {
				dirs = append(dirs, dir)
			}
		}
	}
	return append(dirs, "/usr/local/lib", "/usr/lib", "/usr/lib64", "/usr/lib/x86_64-linux-gnu", "/usr/lib/aarch64-linux-gnu", "/opt/homebrew/lib")
}

func findLibrary(name string, dirs []string) (string, bool) {
	for _, dir := range dirs {
		matches, _ := filepath.Glob(filepath.Join(dir, name+"*"))
		for _, match := range matches {
			if info, err := os.Stat(match); err == nil && !info.IsDir() {
				return match, true
			}
		}
	}
	return "", false
}
