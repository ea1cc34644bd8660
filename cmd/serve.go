package cmd

import (
	"context"
	"fmt"

	"github.com/bz888/murmur/internal/chat"
	"github.com/bz888/murmur/internal/events"
	"github.com/bz888/murmur/internal/logger"
	"github.com/bz888/murmur/internal/monitor"
	"github.com/bz888/murmur/internal/server"
	"github.com/bz888/murmur/internal/server/handlers"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveMonitor bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat relay over HTTP and WebSocket",
	Long: `Serve exposes the relay over HTTP:

  POST /prompt      run a prompt; fragments stream to listeners
  GET  /models      list locally installed models
  POST /monitoring  start the system usage sampler
  GET  /events      WebSocket event stream
  GET  /health      liveness

When redis_url is set, every event is also published to Redis.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	serveCmd.Flags().String("redis-url", "", "also publish events to this Redis")
	serveCmd.Flags().BoolVar(&serveMonitor, "monitor", false, "start the usage sampler immediately")
	viper.BindPFlag("listen_addr", serveCmd.Flags().Lookup("addr"))
	viper.BindPFlag("redis_url", serveCmd.Flags().Lookup("redis-url"))
}

func runServe(cmd *cobra.Command, args []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogging(c, nil); err != nil {
		return err
	}
	localLogger := logger.NewLogger("serve")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	hub := events.NewHub(c.AllowedOrigins)
	var sink events.Sink = hub
	if c.RedisURL != "" {
		rdb, err := events.DialRedis(ctx, c.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		sink = events.Multi{hub, events.NewRedisSink(rdb, c.RedisChannelPrefix)}
		localLogger.Info("Publishing events to redis", "prefix", c.RedisChannelPrefix)
	}

	client, err := newOllamaClient(c)
	if err != nil {
		return err
	}

	sampler := monitor.NewSampler(monitor.HostProbe{}, sink, c.MonitorInterval)
	if serveMonitor {
		sampler.Start(ctx)
	}

	handler := handlers.NewHandler(ctx,
		chat.NewOrchestrator(client, sink, chat.WithTimeout(c.ChatTimeout)),
		chat.NewCatalog(client),
		sampler,
	)

	localLogger.Info("Relaying to ollama", "host", c.OllamaHost, "model", c.Model)
	return server.New(c.ListenAddr, handler, hub).Run(ctx)
}
