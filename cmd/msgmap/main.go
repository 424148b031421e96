package main

import (
	"fmt"
	"log/slog"
	"os"

	"msgmap/internal/messages"
	"msgmap/internal/platform"

	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app carries what the subcommands share: the loaded config and the registry.
type app struct {
	schemaPath string
	cfg        *platform.AppConfig
	reg        *messages.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "msgmap",
		Short: "Map command server message types to wire names",
		Long: `msgmap reads the command server's JSON Schema and resolves message
definitions (TogglePlayCommand, PlayStateEvent, ...) to the wire names that
travel in their command_name/event_name field, and back.`,
		Version:           fmt.Sprintf("%s (%s)", Version, GitCommit),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().StringVar(&a.schemaPath, "schema", "",
		"path to the message schema (default $MSGMAP_SCHEMA_PATH or "+messages.DefaultSchemaPath+")")

	root.AddCommand(
		a.namesCmd(),
		a.wireCmd(),
		a.typeCmd(),
		a.validateCmd(),
		a.catalogueCmd(),
		a.convertCmd(),
		a.serveCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := platform.LoadAppConfig()
	if err != nil {
		return err
	}
	if a.schemaPath != "" {
		cfg.SchemaPath = a.schemaPath
	}
	a.cfg = cfg
	slog.SetDefault(platform.NewLogger(cmd.ErrOrStderr(), cfg.Flags.LogLevel))
	return nil
}

// registry loads the schema once per process. The default path goes through
// the shared default registry.
func (a *app) registry() (*messages.Registry, error) {
	if a.reg != nil {
		return a.reg, nil
	}
	var (
		reg *messages.Registry
		err error
	)
	if a.cfg.SchemaPath == messages.DefaultSchemaPath {
		reg, err = messages.Default()
	} else {
		reg, err = messages.NewLazy(a.cfg.SchemaPath).Registry()
	}
	if err != nil {
		return nil, err
	}
	a.reg = reg
	return reg, nil
}
