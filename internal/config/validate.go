package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	if err := c.validateModel(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.TimeoutSeconds < 0 {
		return errors.New("fetch.timeout_seconds must be zero or positive")
	}
	if c.Fetch.MaxBytes < 0 {
		return errors.New("fetch.max_bytes must be zero or positive")
	}
	return nil
}

func (c *Config) validateMedia() error {
	if c.Media.TranscodeTimeoutSeconds < 0 {
		return errors.New("media.transcode_timeout_seconds must be zero or positive")
	}
	return nil
}

func (c *Config) validateModel() error {
	if !strings.Contains(c.Model.ID, "/") {
		return fmt.Errorf("model.id %q must be of the form owner/name", c.Model.ID)
	}
	if c.Model.LocalDir == "" {
		parsed, err := url.Parse(c.Model.HubURL)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return fmt.Errorf("model.hub_url %q must be an absolute http(s) URL", c.Model.HubURL)
		}
	}
	if strings.ContainsAny(c.Model.ONNXFile, `\`) || strings.HasPrefix(c.Model.ONNXFile, "/") || strings.Contains(c.Model.ONNXFile, "..") {
		return fmt.Errorf("model.onnx_file %q must be a relative path inside the model repository", c.Model.ONNXFile)
	}
	if c.Model.DownloadTimeoutSeconds < 0 {
		return errors.New("model.download_timeout_seconds must be zero or positive")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.MaxConcurrent < 0 {
		return errors.New("api.max_concurrent must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "color", "json":
	default:
		return fmt.Errorf("logging.format %q must be one of console, color, json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}
