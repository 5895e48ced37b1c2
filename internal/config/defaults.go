package config

const (
	defaultConfigPath             = "~/.config/accentid/config.toml"
	defaultModelCacheDir          = "~/.cache/accentid/models"
	defaultLogDir                 = "~/.local/share/accentid/logs"
	defaultTempDirName            = "accentid"
	defaultFetchTimeoutSeconds    = 600
	defaultFetchUserAgent         = "accentid/dev"
	defaultModelID                = "dima806/english_accents_classification"
	defaultModelRevision          = "main"
	defaultModelHubURL            = "https://huggingface.co"
	defaultModelONNXFile          = "model.onnx"
	defaultModelDownloadTimeout   = 900
	defaultFFmpegBinary           = "ffmpeg"
	defaultFFprobeBinary          = "ffprobe"
	defaultAPIBind                = "127.0.0.1:8484"
	defaultAPIMaxConcurrent       = 2
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	onnxRuntimeLibraryEnvVariable = "ONNXRUNTIME_SHARED_LIBRARY_PATH"
)

// Default returns a Config populated with repository defaults. TempDir is
// resolved against os.TempDir during normalization.
func Default() Config {
	return Config{
		Paths: Paths{
			ModelCacheDir: defaultModelCacheDir,
			LogDir:        defaultLogDir,
		},
		Fetch: Fetch{
			TimeoutSeconds: defaultFetchTimeoutSeconds,
			UserAgent:      defaultFetchUserAgent,
		},
		Media: Media{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Model: Model{
			ID:                     defaultModelID,
			Revision:               defaultModelRevision,
			HubURL:                 defaultModelHubURL,
			ONNXFile:               defaultModelONNXFile,
			DownloadTimeoutSeconds: defaultModelDownloadTimeout,
		},
		API: API{
			Bind:          defaultAPIBind,
			MaxConcurrent: defaultAPIMaxConcurrent,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
