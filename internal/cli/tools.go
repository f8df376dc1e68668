package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harun/warden/pkg/coretools"
)

// toolSchema is one entry of `warden tools`.
type toolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the tool declarations sent to the model",
		Long: `Print the name, description and JSON-schema parameters of every tool
the agent can call, exactly as they are declared to the model.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			decls := coretools.Declarations()
			out := make([]toolSchema, 0, len(decls))
			for _, d := range decls {
				out = append(out, toolSchema{
					Name:        d.Name,
					Description: d.Description,
					Parameters:  d.Schema(false),
				})
			}

			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode declarations: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
