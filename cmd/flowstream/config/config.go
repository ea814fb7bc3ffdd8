// Package configcmder provides the config command for managing persistent
// flowstream configuration stored in the .flowstream/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent flowstream configuration.

Configuration is stored as config.toml in the .flowstream/ directory and
provides default values for command flags. CLI flags and environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  app.env, app.frontend_url, app.cors_origins,
  server.listen,
  stream.timeout_seconds, stream.shutdown_grace_seconds,
  engine.name, engine.mock_delay_ms,
  engine.basic_model.base_url, engine.basic_model.model, engine.basic_model.api_key,
  storage.sqlite_path, storage.postgres_dsn,
  publisher.kafka_brokers, publisher.kafka_topic,
  publisher.redis_addr, publisher.redis_stream,
  mcp.timeout_seconds, client.api_target

Use subcommands to get, set, or list configuration values:
  flowstream config set <key> <value>    Set a configuration value
  flowstream config get <key>            Get a configuration value
  flowstream config list                 List all configuration values

Examples:
  flowstream config set stream.timeout_seconds 600
  flowstream config set engine.name upstream
  flowstream config get stream.timeout_seconds
  flowstream config list`

const configShortDesc string = "Manage persistent flowstream configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// configDir reads the persistent --config-dir flag when the command is
// attached to the root, and falls back to dotdir resolution otherwise.
func configDir(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString("config-dir")
	return dir
}
