package config

const (
	defaultStateDir        = "~/.local/share/snapvault"
	defaultCaptureDir      = "~/Pictures/Snapvault"
	defaultExportDir       = "~/Downloads/SnapvaultCollections"
	defaultLogDir          = "~/.local/share/snapvault/logs"
	defaultFrameIntervalMS = 500
	defaultNotifyTimeout   = 10
	defaultLogFormat       = "auto"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:   defaultStateDir,
			CaptureDir: defaultCaptureDir,
			ExportDir:  defaultExportDir,
			LogDir:     defaultLogDir,
		},
		Capture: Capture{
			FrameIntervalMS: defaultFrameIntervalMS,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Capture:        true,
			Export:         true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
