package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/bz888/murmur/internal/chat"
	"github.com/bz888/murmur/internal/config"
	"github.com/bz888/murmur/internal/logger"
	"github.com/bz888/murmur/internal/ollama"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd opens the terminal UI when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "murmur",
	Short: "Chat with local Ollama models",
	Long: `murmur relays chat with a local Ollama instance to its front ends.

Without a subcommand it opens the terminal UI. "murmur serve" exposes the same
commands over HTTP and streams answer fragments and system usage to WebSocket
listeners, and optionally to Redis.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logger.Close()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/murmur/config.toml)")
	rootCmd.PersistentFlags().Bool("dev", false, "development mode: debug logging and the debug console")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	viper.BindPFlag("dev", rootCmd.PersistentFlags().Lookup("dev"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config.SetDefaults(viper.GetViper())
	if err := config.ReadInConfig(viper.GetViper(), cfgFile); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	if verbose && viper.ConfigFileUsed() != "" {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func loadConfig() (config.Config, error) {
	return config.Load(viper.GetViper())
}

// initLogging starts the logger for c. Console records go to view when it is
// set.
func initLogging(c config.Config, view io.Writer) error {
	level := c.LogLevel
	if verbose {
		level = "debug"
	}
	err := logger.InitLogger(logger.Options{
		Dev:    c.Dev,
		Path:   c.LogFile,
		Level:  level,
		Format: c.LogFormat,
		View:   view,
	})
	if err != nil {
		return fmt.Errorf("initialising logger: %w", err)
	}
	return nil
}

func newOllamaClient(c config.Config) (*ollama.OllamaClient, error) {
	client, err := ollama.NewOllamaClient(c.OllamaHost, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama_host %q: %w", c.OllamaHost, err)
	}
	return client, nil
}

func generationConfig(c config.Config) chat.GenerationConfig {
	return chat.GenerationConfig{
		Model:       c.Model,
		Temperature: c.Temperature,
		TopP:        c.TopP,
		TopK:        c.TopK,
	}
}
