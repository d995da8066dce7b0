package config

const (
	defaultStateDir              = "~/.local/share/reelsmith"
	defaultLogDir                = "~/.local/share/reelsmith/logs"
	defaultBackendURL            = "http://127.0.0.1:8000/api/v1"
	defaultBackendRequestTimeout = 30
	defaultPollIntervalMillis    = 2000
	defaultMaxTransportRetries   = 3
	defaultStyle                 = "cinematic"
	defaultVideoModel            = "veo_3_1-fast"
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Backend: Backend{
			BaseURL:        defaultBackendURL,
			RequestTimeout: defaultBackendRequestTimeout,
		},
		Polling: Polling{
			IntervalMillis:      defaultPollIntervalMillis,
			MaxTransportRetries: defaultMaxTransportRetries,
		},
		Generation: Generation{
			VideoModel: defaultVideoModel,
			Style:      defaultStyle,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			JobCompleted:   true,
			JobFailed:      true,
			StageAdvanced:  true,
		},
		Journal: Journal{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
