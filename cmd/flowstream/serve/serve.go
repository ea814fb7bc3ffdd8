// Package servecmder provides the serve command, which runs the streaming
// API server.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/flowstream/api"
	"github.com/papercomputeco/flowstream/api/mcp"
	"github.com/papercomputeco/flowstream/pkg/cliui"
	"github.com/papercomputeco/flowstream/pkg/config"
	"github.com/papercomputeco/flowstream/pkg/dotdir"
	"github.com/papercomputeco/flowstream/pkg/eventstream"
	"github.com/papercomputeco/flowstream/pkg/eventstream/kafka"
	"github.com/papercomputeco/flowstream/pkg/eventstream/nop"
	"github.com/papercomputeco/flowstream/pkg/eventstream/redis"
	"github.com/papercomputeco/flowstream/pkg/logger"
	"github.com/papercomputeco/flowstream/pkg/metrics"
	"github.com/papercomputeco/flowstream/pkg/storage"
	"github.com/papercomputeco/flowstream/pkg/storage/inmemory"
	"github.com/papercomputeco/flowstream/pkg/storage/postgres"
	"github.com/papercomputeco/flowstream/pkg/storage/sqlite"
	"github.com/papercomputeco/flowstream/pkg/stream"
	"github.com/papercomputeco/flowstream/pkg/worker"
	workflowutils "github.com/papercomputeco/flowstream/pkg/workflow/utils"
)

const serveLongDesc string = `Run the flowstream API server.

Every POST /api/chat/stream runs as a supervised session. A session ends
when the workflow finishes, the caller disconnects, the stream timeout
passes, or the workflow fails, and its outcome is recorded and published.

The stream timeout defaults to 1800 seconds and can be set with
--stream-timeout, STREAM_TIMEOUT_SECONDS, or stream.timeout_seconds in
config.toml. Edits to config.toml apply to sessions started afterwards.

Session outcomes are stored in SQLite (--sqlite), PostgreSQL (--postgres),
or in memory, and published to Kafka (--kafka-brokers) or a Redis stream
(--redis-addr) when configured.

Examples:
  flowstream serve
  flowstream serve --engine upstream --stream-timeout 600
  flowstream serve --sqlite ./sessions.db --redis-addr localhost:6379`

const serveShortDesc string = "Run the flowstream API server"

// shutdownSlack is added to the producer grace when bounding shutdown.
const shutdownSlack = 5 * time.Second

type serveCommander struct {
	flags config.FlagSet

	listen        string
	streamTimeout uint
	engine        string
	sqlitePath    string
	postgresDSN   string
	kafkaBrokers  string
	redisAddr     string
	logFile       string
	jsonLogs      bool

	debug     bool
	configDir string

	viper  *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
}

var serveFlags = []string{
	config.FlagListen,
	config.FlagStreamTimeout,
	config.FlagEngine,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagKafkaBrokers,
	config.FlagRedisAddr,
}

func NewServeCmd() *cobra.Command {
	return newServeCmd(&serveCommander{flags: config.Flags})
}

func newServeCmd(cmder *serveCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.debug, _ = cmd.Flags().GetBool("debug")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, cmder.flags, serveFlags)

			cfg, err := config.FromViper(v)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cmder.viper = v
			cmder.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagListen, &cmder.listen)
	config.AddUintFlag(cmd, cmder.flags, config.FlagStreamTimeout, &cmder.streamTimeout)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEngine, &cmder.engine)
	config.AddStringFlag(cmd, cmder.flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, cmder.flags, config.FlagPostgres, &cmder.postgresDSN)
	config.AddStringFlag(cmd, cmder.flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, cmder.flags, config.FlagRedisAddr, &cmder.redisAddr)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")
	cmd.Flags().BoolVar(&cmder.jsonLogs, "json-logs", false, "Write JSON logs to stdout instead of pretty output")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	closeLog, err := c.setupLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	cfg := c.cfg

	engine, engineErr := workflowutils.NewEngine(&workflowutils.NewEngineOpts{
		Name:      cfg.Engine.Name,
		MockDelay: time.Duration(cfg.Engine.MockDelayMS) * time.Millisecond,
		BaseURL:   cfg.Engine.Basic.BaseURL,
		Model:     cfg.Engine.Basic.Model,
		APIKey:    cfg.Engine.Basic.APIKey,
		Logger:    c.logger,
	})
	engineName := cfg.Engine.Name
	if engineErr != nil {
		c.logger.Warn("workflow engine unavailable, running in limited mode",
			"engine", cfg.Engine.Name,
			"error", engineErr,
		)
		engine = nil
	}

	driver, err := c.newStorageDriver(ctx)
	if err != nil {
		return err
	}
	defer driver.Close()

	publisher, err := c.newPublisher(ctx)
	if err != nil {
		return err
	}
	defer publisher.Close()

	pool, err := worker.NewPool(&worker.Config{
		Driver:    driver,
		Publisher: publisher,
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Close()

	collector := metrics.New()

	supervisor := stream.New(stream.Config{
		Timeout:       cfg.StreamTimeout(),
		ShutdownGrace: cfg.ShutdownGrace(),
		Observer:      stream.Observers{collector, pool.Observer(engineName)},
		Logger:        c.logger,
	})

	mcpServer, err := mcp.NewServer(mcp.Config{
		Driver: driver,
		Logger: c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	server, err := api.NewServer(api.Config{
		ListenAddr:     cfg.Server.Listen,
		Engine:         engine,
		EngineErr:      engineErr,
		Supervisor:     supervisor,
		Driver:         driver,
		Metrics:        collector,
		MCP:            mcpServer,
		MCPTimeout:     cfg.MCPTimeout(),
		Production:     cfg.App.Production(),
		AllowedOrigins: allowedOrigins(cfg.App),
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	go c.watchConfig(ctx, supervisor)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		c.logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace()+shutdownSlack)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

// setupLogger builds the process logger. Pretty output goes to an
// interactive stdout, JSON everywhere else, and --log-file adds a JSON copy.
func (c *serveCommander) setupLogger() (func(), error) {
	stdout := logger.New(
		logger.WithDebug(c.debug),
		logger.WithFormat(logger.ConsoleFormat(cliui.IsTerminal(os.Stdout), c.jsonLogs)),
	)

	if c.logFile == "" {
		c.logger = stdout
		return func() {}, nil
	}

	file, closer, err := logger.OpenFile(c.logFile, logger.WithDebug(c.debug))
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	c.logger = logger.Multi(stdout, file)
	return func() { _ = closer.Close() }, nil
}

func (c *serveCommander) newStorageDriver(ctx context.Context) (storage.Driver, error) {
	switch {
	case c.cfg.Storage.PostgresDSN != "":
		driver, err := postgres.NewDriver(ctx, c.cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL driver: %w", err)
		}
		c.logger.Info("using PostgreSQL storage")
		return driver, nil

	case c.cfg.Storage.SQLitePath != "":
		driver, err := sqlite.NewDriver(ctx, c.cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite driver: %w", err)
		}
		c.logger.Info("using SQLite storage", "path", c.cfg.Storage.SQLitePath)
		return driver, nil

	default:
		c.logger.Info("using in-memory storage")
		return inmemory.NewDriver(), nil
	}
}

func (c *serveCommander) newPublisher(ctx context.Context) (eventstream.Publisher, error) {
	pub := c.cfg.Publisher

	switch {
	case pub.KafkaBrokers != "":
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: splitBrokers(pub.KafkaBrokers),
			Topic:   pub.KafkaTopic,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
		}
		c.logger.Info("publishing session events to Kafka",
			"brokers", pub.KafkaBrokers,
			"topic", pub.KafkaTopic,
		)
		return p, nil

	case pub.RedisAddr != "":
		p, err := redis.NewPublisher(ctx, redis.Config{
			Addr:   pub.RedisAddr,
			Stream: pub.RedisStream,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis publisher: %w", err)
		}
		c.logger.Info("publishing session events to Redis",
			"addr", pub.RedisAddr,
			"stream", pub.RedisStream,
		)
		return p, nil

	default:
		return nop.NewPublisher(), nil
	}
}

// watchConfig applies stream timeout changes from config.toml to sessions
// started after the edit.
func (c *serveCommander) watchConfig(ctx context.Context, supervisor *stream.Supervisor) {
	dir, err := dotdir.NewManager().Target(c.configDir)
	if err != nil {
		c.logger.Warn("config watch disabled", "error", err)
		return
	}
	path := filepath.Join(dir, config.FileName)

	err = config.WatchFile(ctx, path, func() {
		if err := config.ReadConfig(c.viper); err != nil {
			c.logger.Warn("ignoring invalid config change", "path", path, "error", err)
			return
		}
		cfg, err := config.FromViper(c.viper)
		if err != nil {
			c.logger.Warn("ignoring invalid config change", "path", path, "error", err)
			return
		}

		if timeout := cfg.StreamTimeout(); timeout != supervisor.Timeout() {
			supervisor.SetTimeout(timeout)
			c.logger.Info("stream timeout updated", "timeout", supervisor.Timeout())
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("config watch stopped", "error", err)
	}
}

// allowedOrigins is the production CORS allow list: the frontend URL plus
// any configured extra origins.
func allowedOrigins(app config.AppConfig) []string {
	var origins []string
	seen := map[string]bool{}
	for _, o := range append([]string{app.FrontendURL}, app.CORSOrigins...) {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		origins = append(origins, o)
	}
	return origins
}

func splitBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
