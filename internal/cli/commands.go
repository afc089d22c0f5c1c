package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"sigs.k8s.io/yaml"
)

// App carries the global flags and the loaded configuration through the
// command tree.
type App struct {
	configFile string
	jsonOutput bool
	yamlOutput bool
	config     *Config
	newClient  func(*Config) *HTTPClient
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	cmd := NewRootCmd()
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		jsonOut, _ := cmd.PersistentFlags().GetBool("json")
		if jsonOut {
			b, _ := jsoniter.MarshalIndent(map[string]string{"error": err.Error()}, "", "  ")
			fmt.Println(string(b))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func (app *App) configPath() (string, error) {
	if app.configFile != "" {
		return app.configFile, nil
	}
	return GetDefaultConfigPath()
}

func (app *App) preRun(cmd *cobra.Command, args []string) error {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "config" || c.Name() == "version" {
			return nil
		}
	}
	file, err := app.configPath()
	if err != nil {
		return err
	}
	cfg, err := LoadConfig(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file not found. Configure the cli with \"catalog-cli config create\" first")
		}
		return fmt.Errorf("unable to load config file: %w", err)
	}
	app.config = cfg
	return nil
}

func (app *App) client() *HTTPClient {
	return app.newClient(app.config)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// printBody writes a server response as JSON, YAML or through human.
func (app *App) printBody(cmd *cobra.Command, body []byte, human func(w io.Writer, doc gjson.Result) error) error {
	w := cmd.OutOrStdout()
	switch {
	case app.jsonOutput:
		_, err := fmt.Fprintln(w, gjson.GetBytes(body, "@pretty").Raw)
		return err
	case app.yamlOutput:
		out, err := yaml.JSONToYAML(body)
		if err != nil {
			return fmt.Errorf("failed to format YAML output: %v", err)
		}
		_, err = w.Write(out)
		return err
	}
	return human(w, gjson.ParseBytes(body))
}

// printKV writes a small result object, or text in human mode.
func (app *App) printKV(cmd *cobra.Command, kv map[string]any, text string) error {
	w := cmd.OutOrStdout()
	switch {
	case app.jsonOutput:
		b, err := jsoniter.MarshalIndent(kv, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case app.yamlOutput:
		b, err := yaml.Marshal(kv)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of catalog-cli",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.printKV(cmd, map[string]any{"version": cliVersion}, "catalog-cli "+cliVersion)
		},
	}
}
