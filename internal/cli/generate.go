package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/depsgen/pkg/config"
)

// generateCommand creates the generate command.
func (c *CLI) generateCommand() *cobra.Command {
	var (
		configPath string
		noCache    bool
	)
	flags := config.Default()

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render the dependency template into a source file",
		Long: `Render a Handlebars template over the dependencies in Cargo.lock.

By default src/deps.template.rs is rendered to src/deps.rs. The output path is
derived by dropping ".template" from the template file name unless --output is
given. Nothing is written when the output is newer than the lock file; use
--force to regenerate anyway.

Templates see "root" (the workspace package) and "dependencies" (the ordered
list), each entry with name, version, source, checksum and dependencies.

Packages are keyed by name. A lock file that holds two versions of the same
crate (common in larger workspaces) is rejected with DUPLICATE_PACKAGE.`,
		Example: `  depsgen generate
  depsgen generate --template src/licenses.template.rs --max-depth 1
  depsgen generate --template-text '{{#each dependencies}}{{name}}\n{{/each}}' -o deps.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, configPath, flags)
			if err != nil {
				return err
			}
			return c.runGenerate(cmd, cfg, noCache)
		},
	}

	configFlags(cmd, &flags, &configPath)
	cmd.Flags().StringVarP(&flags.TemplatePath, "template", "t", flags.TemplatePath, "template file")
	cmd.Flags().StringVar(&flags.Template, "template-text", "", "inline template (requires --output)")
	cmd.Flags().StringVarP(&flags.TargetPath, "output", "o", "", "output file (default: template path without \".template\")")
	cmd.Flags().StringVar(&flags.PostSearch, "post-search", flags.PostSearch, "text to replace in the rendered output (empty: none)")
	cmd.Flags().StringVar(&flags.PostReplace, "post-replace", flags.PostReplace, "replacement for --post-search")
	cmd.Flags().BoolVarP(&flags.Force, "force", "f", false, "regenerate even when the output is up to date")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the render cache")

	return cmd
}

func (c *CLI) runGenerate(cmd *cobra.Command, cfg config.Config, noCache bool) error {
	out := cmd.OutOrStdout()

	runner, err := c.newRunner(noCache)
	if err != nil {
		return err
	}
	res, err := runner.Generate(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	if res.Skipped {
		printInfo(out, "%s is up to date", res.Target)
		return nil
	}

	printSuccess(out, "Generated dependencies of %s", StyleHighlight.Render(res.Root.Name))
	printFile(out, res.Target)
	printStats(out, len(res.Packages), res.Stats.NodeCount, res.CacheHit)
	for _, u := range res.Unresolved {
		printWarning(out, "%s depends on %s, which is not in %s", u.From, u.Name, cfg.LockPath)
	}
	return nil
}
