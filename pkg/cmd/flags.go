package cmd

import cli "github.com/urfave/cli/v3"

// Flag names shared by the binaries.
const (
	FlagDatabaseURL  = "database-url"
	FlagEventBus     = "event-bus"
	FlagKafkaBrokers = "kafka-brokers"
	FlagDedupStore   = "dedup-store-url"
	FlagGatewayURL   = "provider-gateway-url"
	FlagGatewayToken = "provider-gateway-token"
	FlagPluginsPath  = "plugins-path"
	FlagLogLevel     = "log-level"
	FlagOtelEnabled  = "otel-enabled"
)

// CommonFlags are the persistence, event bus, node and logging flags every
// binary takes.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     FlagDatabaseURL,
			Usage:    "Database connection URL for persistence (file://<dir> or postgres://...)",
			Required: true,
			Sources:  cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    FlagEventBus,
			Usage:   "Event bus type (kafka, gochannel)",
			Value:   "gochannel",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    FlagKafkaBrokers,
			Usage:   "Comma separated Kafka brokers",
			Value:   "localhost:9092",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    FlagGatewayURL,
			Usage:   "Base URL of the provider gateway",
			Sources: cli.EnvVars("PROVIDER_GATEWAY_URL"),
		},
		&cli.StringFlag{
			Name:    FlagGatewayToken,
			Usage:   "Bearer token sent to the provider gateway",
			Sources: cli.EnvVars("PROVIDER_GATEWAY_TOKEN"),
		},
		&cli.StringFlag{
			Name:    FlagPluginsPath,
			Usage:   "Path to the directory containing node plugins",
			Value:   "./plugins",
			Sources: cli.EnvVars("PLUGINS_PATH"),
		},
		&cli.StringFlag{
			Name:    FlagLogLevel,
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.BoolFlag{
			Name:    FlagOtelEnabled,
			Usage:   "Export traces over OTLP HTTP",
			Sources: cli.EnvVars("OTEL_ENABLED"),
		},
	}
}

// DedupStoreFlag selects the dedup store of the processor.
func DedupStoreFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    FlagDedupStore,
		Usage:   "Dedup store URL (memory:// or redis://...)",
		Value:   "memory://",
		Sources: cli.EnvVars("DEDUP_STORE_URL"),
	}
}
