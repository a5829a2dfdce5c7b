package config

const (
	defaultUpstreamBaseURL = "https://api.mathislambert.fr/v1"
	defaultUpstreamModel   = "openai/gpt-oss-120b"
	defaultUpstreamTimeout = "5m"

	defaultSystemPrompt = "You are the assistant on a personal portfolio site. " +
		"Answer questions about the site owner's projects, writing and experience concisely."

	defaultServerListen = ":8081"

	defaultClientTarget = "http://localhost:8081"
	defaultClientPath   = "/api/chat/completions"

	defaultStorageProvider  = StorageSQLite
	defaultEventProvider    = EventStreamNone
	defaultEventStreamTopic = "folio.turns"

	// DefaultSQLiteFile is created inside the .folio/ directory when
	// storage.sqlite_path is unset.
	DefaultSQLiteFile = "folio.sqlite"
)

// Storage providers.
const (
	StorageNone     = "none"
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Event stream providers.
const (
	EventStreamNone  = "none"
	EventStreamKafka = "kafka"
)

// StorageProviders lists the accepted storage.provider values.
func StorageProviders() []string {
	return []string{StorageNone, StorageMemory, StorageSQLite, StoragePostgres}
}

// EventStreamProviders lists the accepted eventstream.provider values.
func EventStreamProviders() []string {
	return []string{EventStreamNone, EventStreamKafka}
}

// NewDefaultConfig returns a Config with defaults for every field that has
// one. This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Upstream: UpstreamConfig{
			BaseURL: defaultUpstreamBaseURL,
			Model:   defaultUpstreamModel,
			Timeout: defaultUpstreamTimeout,
		},
		Chat: ChatConfig{
			SystemPrompt: defaultSystemPrompt,
		},
		Server: ServerConfig{
			Listen: defaultServerListen,
		},
		Client: ClientConfig{
			Target: defaultClientTarget,
			Path:   defaultClientPath,
		},
		Storage: StorageConfig{
			Provider: defaultStorageProvider,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventProvider,
			Topic:    defaultEventStreamTopic,
		},
	}
}
