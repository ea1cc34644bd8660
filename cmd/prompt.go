package cmd

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bz888/murmur/internal/chat"
	"github.com/bz888/murmur/internal/events"
	"github.com/spf13/cobra"
)

var (
	promptImage string
	promptJSON  bool
)

var promptCmd = &cobra.Command{
	Use:   "prompt [message]",
	Short: "Send a single prompt and stream the answer",
	Long: `Send a single prompt and stream the answer to stdout.
The message is read from stdin when not given as an argument.

Examples:
  murmur prompt "why is the sky blue?"
  murmur prompt --model llava:7b --image cat.png "what is in this picture?"
  echo "hello" | murmur prompt --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPrompt,
}

func init() {
	rootCmd.AddCommand(promptCmd)

	promptCmd.Flags().String("model", "", "model to use (default from config)")
	promptCmd.Flags().Float32("temperature", 0, "sampling temperature")
	promptCmd.Flags().Float32("top-p", 0, "nucleus sampling threshold")
	promptCmd.Flags().Uint32("top-k", 0, "top-k sampling limit")
	promptCmd.Flags().StringVar(&promptImage, "image", "", "attach an image file")
	promptCmd.Flags().BoolVar(&promptJSON, "json", false, "write events as NDJSON envelopes")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	message, err := promptMessage(cmd, args)
	if err != nil {
		return err
	}

	c, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogging(c, nil); err != nil {
		return err
	}

	gen, err := promptConfig(cmd, generationConfig(c))
	if err != nil {
		return err
	}

	msg := chat.Message{Role: chat.RoleUser, Content: message}
	if promptImage != "" {
		data, err := os.ReadFile(promptImage)
		if err != nil {
			return fmt.Errorf("reading image: %w", err)
		}
		encoded := base64.StdEncoding.EncodeToString(data)
		msg.Image = &encoded
	}

	out := cmd.OutOrStdout()
	var sink events.Sink = events.NewWriter(out)
	if !promptJSON {
		sink = events.SinkFunc(func(name string, payload any) error {
			f, ok := payload.(chat.Fragment)
			if !ok {
				return nil
			}
			if _, err := io.WriteString(out, f.Message.Content); err != nil {
				return err
			}
			if f.Done {
				_, err := fmt.Fprintln(out)
				return err
			}
			return nil
		})
	}

	client, err := newOllamaClient(c)
	if err != nil {
		return err
	}
	_, err = chat.NewOrchestrator(client, sink, chat.WithTimeout(c.ChatTimeout)).
		SendPrompt(cmd.Context(), chat.Prompt{Config: gen, History: []chat.Message{msg}})
	return err
}

func promptMessage(cmd *cobra.Command, args []string) (string, error) {
	var message string
	if len(args) == 1 {
		message = args[0]
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		message = string(data)
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("empty prompt")
	}
	return message, nil
}

// promptConfig overrides gen with the generation flags the user set.
func promptConfig(cmd *cobra.Command, gen chat.GenerationConfig) (chat.GenerationConfig, error) {
	flags := cmd.Flags()
	var err error
	if flags.Changed("model") {
		gen.Model, err = flags.GetString("model")
		if err != nil {
			return gen, err
		}
	}
	if flags.Changed("temperature") {
		if gen.Temperature, err = flags.GetFloat32("temperature"); err != nil {
			return gen, err
		}
	}
	if flags.Changed("top-p") {
		if gen.TopP, err = flags.GetFloat32("top-p"); err != nil {
			return gen, err
		}
	}
	if flags.Changed("top-k") {
		if gen.TopK, err = flags.GetUint32("top-k"); err != nil {
			return gen, err
		}
	}
	if strings.TrimSpace(gen.Model) == "" {
		return gen, errors.New("no model configured")
	}
	return gen, nil
}
