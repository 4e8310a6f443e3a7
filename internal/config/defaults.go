package config

const (
	defaultDataDir        = "~/.local/share/ncboard"
	defaultLogDir         = "~/.local/share/ncboard/logs"
	defaultCacheFile      = "snapshots.json"
	defaultCredentialFile = "token"
	defaultStateFile      = "session.json"
	defaultRemoteBaseURL  = "http://localhost:5000"
	defaultRemoteTimeout  = 15
	defaultServerBind     = "127.0.0.1:5000"
	defaultDBDriver       = "sqlite"
	defaultDBFile         = "candidates.db"
	defaultDBTimeout      = 5
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Remote: Remote{
			BaseURL:        defaultRemoteBaseURL,
			TimeoutSeconds: defaultRemoteTimeout,
		},
		Server: Server{
			Bind:             defaultServerBind,
			DBDriver:         defaultDBDriver,
			DBTimeoutSeconds: defaultDBTimeout,
			Metrics:          true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
