package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag. Commands reference
// flags by registry key so the same logical flag (e.g. --model on serve,
// chat and ask) keeps one name, shorthand and description.
type Flag struct {
	// Name is the long flag name (e.g. "model").
	Name string

	// Shorthand is the one-letter short flag. Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to.
	ViperKey string

	Description string
}

// FlagSet maps registry keys to flag definitions.
type FlagSet map[string]Flag

// Flag registry keys.
const (
	FlagListen       = "listen"
	FlagUpstream     = "upstream"
	FlagAPIKey       = "api-key"
	FlagModel        = "model"
	FlagSystemPrompt = "system-prompt"
	FlagTarget       = "target"
	FlagStorage      = "storage"
	FlagSQLite       = "sqlite"
	FlagPostgresDSN  = "postgres-dsn"
	FlagEventStream  = "eventstream"
	FlagKafkaBrokers = "kafka-brokers"
	FlagKafkaTopic   = "kafka-topic"
	FlagOTLPEndpoint = "otlp-endpoint"
)

// Flags is the shared registry used by the folio commands.
var Flags = FlagSet{
	FlagListen:       {Name: "listen", Shorthand: "l", ViperKey: "server.listen", Description: "Address for the chat server to listen on"},
	FlagUpstream:     {Name: "upstream", Shorthand: "u", ViperKey: "upstream.base_url", Description: "Base URL of the OpenAI-compatible model API"},
	FlagAPIKey:       {Name: "api-key", ViperKey: "upstream.api_key", Description: "API key sent to the upstream"},
	FlagModel:        {Name: "model", Shorthand: "m", ViperKey: "upstream.model", Description: "Model name requested from the upstream"},
	FlagSystemPrompt: {Name: "system-prompt", ViperKey: "chat.system_prompt", Description: "System prompt prepended to every conversation"},
	FlagTarget:       {Name: "target", Shorthand: "t", ViperKey: "client.target", Description: "folio server URL"},
	FlagStorage:      {Name: "storage", ViperKey: "storage.provider", Description: "Turn storage: none, memory, sqlite or postgres"},
	FlagSQLite:       {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to the SQLite database (default .folio/folio.sqlite)"},
	FlagPostgresDSN:  {Name: "postgres-dsn", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string"},
	FlagEventStream:  {Name: "eventstream", ViperKey: "eventstream.provider", Description: "Turn event publisher: none or kafka"},
	FlagKafkaBrokers: {Name: "kafka-brokers", ViperKey: "eventstream.brokers", Description: "Comma separated Kafka brokers"},
	FlagKafkaTopic:   {Name: "kafka-topic", ViperKey: "eventstream.topic", Description: "Kafka topic for turn events"},
	FlagOTLPEndpoint: {Name: "otlp-endpoint", ViperKey: "telemetry.otlp_endpoint", Description: "OTLP/HTTP endpoint for trace export"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet. The
// default comes from NewDefaultConfig so help output shows real defaults.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper. Call it in
// PreRunE after InitViper to complete the flag > env > file > default chain.
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}
