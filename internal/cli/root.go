package cli

import (
	"github.com/spf13/cobra"
)

const cliVersion = "v0.1.0"

// NewRootCmd creates the catalog-cli command tree.
func NewRootCmd() *cobra.Command {
	app := &App{newClient: NewHTTPClient}
	cmd := &cobra.Command{
		Use:   "catalog-cli",
		Short: "catalog-cli is a command line interface for the data catalog",
		Long: `catalog-cli talks to the data catalog through its API key authenticated API.
Generate an API key from the catalog, then run "catalog-cli config create".`,
		PersistentPreRunE: app.preRun,
		SilenceErrors:     true,
		SilenceUsage:      true,
	}
	cmd.PersistentFlags().StringVar(&app.configFile, "config", "", "Path to configuration file to override default")
	cmd.PersistentFlags().BoolVarP(&app.jsonOutput, "json", "j", false, "Output in JSON format")
	cmd.PersistentFlags().BoolVar(&app.yamlOutput, "yaml", false, "Output in YAML format")
	cmd.MarkFlagsMutuallyExclusive("json", "yaml")

	addCommands(cmd, app)
	return cmd
}

func addCommands(cmd *cobra.Command, app *App) {
	cmd.AddCommand(
		newVersionCmd(app),
		newConfigCmd(app),
		newDatasetsCmd(app),
		newFilesCmd(app),
		newTagsCmd(app),
	)
}
