package config

const (
	defaultAppEnv      = "development"
	defaultFrontendURL = "http://localhost:3000"
	defaultListen      = ":8000"

	defaultStreamTimeoutSeconds = 1800
	defaultShutdownGraceSeconds = 5

	defaultEngine      = "mock"
	defaultMockDelayMS = 50
	defaultModelURL    = "https://api.openai.com/v1"

	defaultKafkaTopic  = "flowstream.sessions"
	defaultRedisStream = "flowstream:sessions"

	defaultMCPTimeoutSeconds = 300

	defaultClientAPITarget = "http://localhost:8000"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		App: AppConfig{
			Env:         defaultAppEnv,
			FrontendURL: defaultFrontendURL,
		},
		Server: ServerConfig{
			Listen: defaultListen,
		},
		Stream: StreamConfig{
			TimeoutSeconds:       defaultStreamTimeoutSeconds,
			ShutdownGraceSeconds: defaultShutdownGraceSeconds,
		},
		Engine: EngineConfig{
			Name:        defaultEngine,
			MockDelayMS: defaultMockDelayMS,
			Basic: ModelConfig{
				BaseURL: defaultModelURL,
			},
		},
		Publisher: PublisherConfig{
			KafkaTopic:  defaultKafkaTopic,
			RedisStream: defaultRedisStream,
		},
		MCP: MCPConfig{
			TimeoutSeconds: defaultMCPTimeoutSeconds,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
	}
}
