package config

const (
	defaultInputDir              = "./recovery"
	defaultOutputDir             = "./organized"
	defaultStateDir              = "~/.local/share/mediasort"
	defaultConcurrency           = 4
	defaultUnknownDir            = "unknown"
	defaultTimezone              = "Local"
	defaultFatalPolicy           = FatalPolicyContinue
	defaultMetadataBackend       = BackendAuto
	defaultFFprobeBinary         = "ffprobe"
	defaultExiftoolBinary        = "exiftool"
	defaultMetadataTimeout       = 30
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultJournalFilename       = "journal.db"
	defaultConfigPath            = "~/.config/mediasort/config.toml"
	projectConfigFilename        = "mediasort.toml"
	envInputDir                  = "MEDIASORT_INPUT_DIR"
	envOutputDir                 = "MEDIASORT_OUTPUT_DIR"
	outputLockFilename           = ".mediasort.lock"
	defaultQuarantineOnPlacement = true
	defaultNtfyRequestTimeout    = 10
)

// Fatal policies decide what the scheduler does after a file could not be
// placed anywhere.
const (
	FatalPolicyContinue = "continue"
	FatalPolicyAbort    = "abort"
)

// Metadata backends.
const (
	BackendAuto     = "auto"
	BackendExiftool = "exiftool"
	BackendExif     = "exif"
	BackendFFprobe  = "ffprobe"
	BackendNone     = "none"
)

// DefaultExtensions is the media allow-list used when the config file does
// not provide one.
var DefaultExtensions = []string{
	"jpg", "jpeg", "png", "gif", "bmp",
	"cr2", "nef", "arw", "dng", "orf", "rw2",
	"heic", "heif", "tif", "tiff",
	"mp4", "mov", "avi", "mkv", "wmv", "mts", "m2ts", "3gp", "webm",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:  defaultInputDir,
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
		},
		Organize: Organize{
			Concurrency:                  defaultConcurrency,
			Extensions:                   append([]string(nil), DefaultExtensions...),
			UnknownDir:                   defaultUnknownDir,
			Timezone:                     defaultTimezone,
			QuarantineOnPlacementFailure: defaultQuarantineOnPlacement,
			FatalPolicy:                  defaultFatalPolicy,
			LockOutput:                   true,
			SkipHidden:                   true,
		},
		Metadata: Metadata{
			Backend:        defaultMetadataBackend,
			FFprobeBinary:  defaultFFprobeBinary,
			ExiftoolBinary: defaultExiftoolBinary,
			TimeoutSeconds: defaultMetadataTimeout,
		},
		Journal: Journal{
			Enabled: true,
		},
		Notifications: Notifications{
			NtfyRequestTimeout: defaultNtfyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
