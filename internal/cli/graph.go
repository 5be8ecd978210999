package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depsgen/pkg/config"
	"github.com/matzehuels/depsgen/pkg/export"
)

const (
	formatJSON = "json"
	formatDOT  = "dot"
	formatSVG  = "svg"
)

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		configPath string
		fromJSON   string
		format     string
		output     string
		detailed   bool
	)
	flags := config.Default()

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Export the dependency graph of the lock file",
		Long: `Export the reconstructed dependency graph as JSON (root, nodes with reference
counts, edges), Graphviz DOT, or SVG rendered with the embedded Graphviz.`,
		Example: `  depsgen graph --format dot | dot -Tpng > deps.png
  depsgen graph --format svg -o deps.svg
  depsgen graph --from-json deps.json --format dot`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatJSON && format != formatDOT && format != formatSVG {
				return fmt.Errorf("invalid format: %s (must be 'json', 'dot', or 'svg')", format)
			}
			cfg, err := resolveConfig(cmd, configPath, flags)
			if err != nil {
				return err
			}
			g, err := loadGraph(cmd.Context(), cfg, fromJSON)
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			switch format {
			case formatJSON:
				if output != "" {
					if err := export.ExportJSON(g, output); err != nil {
						return err
					}
					printSuccess(cmd.ErrOrStderr(), "Exported %d packages", g.Len())
					printFile(cmd.ErrOrStderr(), output)
					return nil
				}
				if err := export.WriteJSON(g, &buf); err != nil {
					return err
				}
			case formatDOT:
				buf.WriteString(export.ToDOT(g, export.DOTOptions{Detailed: detailed}))
			case formatSVG:
				prog := newProgress(loggerFromContext(cmd.Context()))
				svg, err := export.RenderSVG(cmd.Context(), export.ToDOT(g, export.DOTOptions{Detailed: detailed}))
				if err != nil {
					return err
				}
				prog.done("Rendered SVG")
				buf.Write(svg)
			}

			if output == "" {
				_, err = cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printSuccess(cmd.ErrOrStderr(), "Exported %d packages", g.Len())
			printFile(cmd.ErrOrStderr(), output)
			return nil
		},
	}

	configFlags(cmd, &flags, &configPath)
	cmd.Flags().StringVarP(&format, "format", "F", formatJSON, "output format: json, dot, svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVar(&fromJSON, "from-json", "", "read the graph from an exported JSON file instead of the lock file")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "show versions and reference counts in DOT/SVG labels")

	return cmd
}
