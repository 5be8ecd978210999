package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depsgen/pkg/config"
	"github.com/matzehuels/depsgen/pkg/export"
	"github.com/matzehuels/depsgen/pkg/graph"
	"github.com/matzehuels/depsgen/pkg/lockfile"
)

// listCommand creates the list command.
func (c *CLI) listCommand() *cobra.Command {
	var (
		configPath string
		fromJSON   string
		asJSON     bool
	)
	flags := config.Default()

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the dependencies in template order",
		Long: `Print the dependencies exactly as the generate command hands them to the
template: depth-first from the root, each package once, in declaration order.

With --from-json the packages come from a file written by "depsgen graph"
instead of the lock file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, configPath, flags)
			if err != nil {
				return err
			}
			g, err := loadGraph(cmd.Context(), cfg, fromJSON)
			if err != nil {
				return err
			}
			pkgs, err := graph.Flatten(g, cfg.FlattenOptions())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(pkgs)
			}
			if len(pkgs) == 0 {
				printInfo(out, "%s has no dependencies", g.RootPackage().Name)
				return nil
			}
			fmt.Fprintln(out, packageTable(pkgs, g.RootPackage().Name))
			return nil
		},
	}

	configFlags(cmd, &flags, &configPath)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	cmd.Flags().StringVar(&fromJSON, "from-json", "", "read the graph from an exported JSON file instead of the lock file")

	return cmd
}

// loadGraph builds the graph of the configured lock file, or of the
// exported graph at fromJSON when set.
func loadGraph(ctx context.Context, cfg config.Config, fromJSON string) (*graph.Graph, error) {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	source := cfg.LockPath
	var pkgs []graph.Package
	if fromJSON != "" {
		f, err := os.Open(fromJSON)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if pkgs, err = export.ReadJSON(f); err != nil {
			return nil, fmt.Errorf("%s: %w", fromJSON, err)
		}
		source = fromJSON
	} else {
		lf, err := lockfile.Load(cfg.LockPath)
		if err != nil {
			return nil, err
		}
		pkgs = lf.Packages()
	}

	g, err := graph.Build(pkgs, cfg.BuildOptions())
	if err != nil {
		return nil, err
	}
	for _, u := range g.Unresolved() {
		logger.Warn("skipped unresolved dependency", "from", u.From, "name", u.Name)
	}
	prog.done(fmt.Sprintf("Loaded %d packages from %s", g.Len(), source))
	return g, nil
}
