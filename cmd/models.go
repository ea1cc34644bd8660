package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/bz888/murmur/internal/chat"
	"github.com/bz888/murmur/internal/monitor"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List locally installed models",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		if err := initLogging(c, nil); err != nil {
			return err
		}

		client, err := newOllamaClient(c)
		if err != nil {
			return err
		}
		models, err := chat.NewCatalog(client).ListModels(cmd.Context())
		if err != nil {
			return err
		}

		if len(models) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No models installed. Try: ollama pull", c.Model)
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSIZE\tPARAMS\tQUANT\tMODIFIED")
		for _, m := range models {
			name := m.Name
			if name == c.Model {
				name += " *"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				name,
				monitor.FormatMem(uint64(max(m.Size, 0))),
				m.Details.ParameterSize,
				m.Details.QuantizationLevel,
				m.ModifiedAt.Format("2006-01-02 15:04"),
			)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
