package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFetch()
	c.normalizeMedia()
	if err := c.normalizeModel(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		if value, ok := os.LookupEnv("ACCENTID_TEMP_DIR"); ok && strings.TrimSpace(value) != "" {
			c.Paths.TempDir = strings.TrimSpace(value)
		} else {
			c.Paths.TempDir = filepath.Join(os.TempDir(), defaultTempDirName)
		}
	}
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ModelCacheDir) == "" {
		c.Paths.ModelCacheDir = defaultModelCacheDir
	}
	if c.Paths.ModelCacheDir, err = expandPath(c.Paths.ModelCacheDir); err != nil {
		return fmt.Errorf("paths.model_cache_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeFetch() {
	c.Fetch.UserAgent = strings.TrimSpace(c.Fetch.UserAgent)
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = defaultFetchUserAgent
	}
}

func (c *Config) normalizeMedia() {
	c.Media.FFmpegBinary = strings.TrimSpace(c.Media.FFmpegBinary)
	if c.Media.FFmpegBinary == "" {
		c.Media.FFmpegBinary = defaultFFmpegBinary
	}
	c.Media.FFprobeBinary = strings.TrimSpace(c.Media.FFprobeBinary)
	if c.Media.FFprobeBinary == "" {
		c.Media.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeModel() error {
	c.Model.ID = strings.Trim(strings.TrimSpace(c.Model.ID), "/")
	if c.Model.ID == "" {
		c.Model.ID = defaultModelID
	}
	c.Model.Revision = strings.TrimSpace(c.Model.Revision)
	if c.Model.Revision == "" {
		c.Model.Revision = defaultModelRevision
	}
	c.Model.HubURL = strings.TrimRight(strings.TrimSpace(c.Model.HubURL), "/")
	if c.Model.HubURL == "" {
		c.Model.HubURL = defaultModelHubURL
	}
	c.Model.ONNXFile = strings.TrimSpace(c.Model.ONNXFile)
	if c.Model.ONNXFile == "" {
		c.Model.ONNXFile = defaultModelONNXFile
	}
	c.Model.HubToken = strings.TrimSpace(c.Model.HubToken)
	if c.Model.HubToken == "" {
		for _, key := range []string{"HUGGING_FACE_HUB_TOKEN", "HF_TOKEN"} {
			if value := strings.TrimSpace(os.Getenv(key)); value != "" {
				c.Model.HubToken = value
				break
			}
		}
	}
	c.Model.ONNXRuntimeLibrary = strings.TrimSpace(c.Model.ONNXRuntimeLibrary)
	if c.Model.ONNXRuntimeLibrary == "" {
		if value, ok := os.LookupEnv(onnxRuntimeLibraryEnvVariable); ok {
			c.Model.ONNXRuntimeLibrary = strings.TrimSpace(value)
		}
	}
	if c.Model.ONNXRuntimeLibrary != "" {
		expanded, err := expandPath(c.Model.ONNXRuntimeLibrary)
		if err != nil {
			return fmt.Errorf("model.onnxruntime_library: %w", err)
		}
		c.Model.ONNXRuntimeLibrary = expanded
	}
	if strings.TrimSpace(c.Model.LocalDir) != "" {
		expanded, err := expandPath(strings.TrimSpace(c.Model.LocalDir))
		if err != nil {
			return fmt.Errorf("model.local_dir: %w", err)
		}
		c.Model.LocalDir = expanded
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	if c.API.MaxConcurrent == 0 {
		c.API.MaxConcurrent = defaultAPIMaxConcurrent
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		c.API.Token = strings.TrimSpace(os.Getenv("ACCENTID_API_TOKEN"))
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
