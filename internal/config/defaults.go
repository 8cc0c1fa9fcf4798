package config

const (
	defaultConfigPath       = "~/.config/amreingest/config.toml"
	defaultDataDir          = "~/.local/share/amreingest"
	defaultLogDir           = "~/.local/share/amreingest/logs"
	defaultAMURL            = "http://127.0.0.1:62080"
	defaultSSURL            = "http://127.0.0.1:62081"
	defaultUser             = "test"
	defaultProcessingConfig = "default"
	defaultReingestType     = "FULL"
	defaultThrottle         = 1
	defaultApprovalRetries  = 2
	defaultLatencyMillis    = 800
	defaultMaxStatusPolls   = 150
	defaultRequestTimeout   = 30
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
)

// Admission orders accepted by reingest.order.
const (
	OrderPackageID = "package_id"
	OrderFIFO      = "fifo"
)

// Environment variables consulted when API keys are absent from the file.
const (
	EnvAMAPIKey = "AMREINGEST_AM_API_KEY"
	EnvSSAPIKey = "AMREINGEST_SS_API_KEY"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Archivematica: Service{
			URL:  defaultAMURL,
			User: defaultUser,
		},
		StorageService: Service{
			URL:  defaultSSURL,
			User: defaultUser,
		},
		Reingest: Reingest{
			ProcessingConfig: defaultProcessingConfig,
			ReingestType:     defaultReingestType,
			Throttle:         defaultThrottle,
			ApprovalRetries:  defaultApprovalRetries,
			LatencyMillis:    defaultLatencyMillis,
			MaxStatusPolls:   defaultMaxStatusPolls,
			Order:            OrderPackageID,
			RequestTimeout:   defaultRequestTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
