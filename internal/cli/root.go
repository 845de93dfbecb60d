// Package cli implements the gendb command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/gendb/internal/config"
	"github.com/JonMunkholm/gendb/internal/core"
	"github.com/JonMunkholm/gendb/internal/logging"
)

const description = `gendb generates synthetic person records.

Each record joins a person (birth date, gender, surname, first names and a
unique 11-digit PID) with a city drawn from the reference data. Tables can
be written to files, S3 objects or SQL databases in several formats.

Settings come from the environment (and an optional .env file); flags
override them for a single invocation.`

type rootCommand struct {
	cmd      *cobra.Command
	ctx      context.Context
	cfg      *config.Config
	service  *core.Service
	closeLog func() error

	envFile  string
	logLevel string
	data     config.DataConfig
}

// NewRootCommand creates the parent of all sub-commands.
func NewRootCommand(ctx context.Context, stdout, stderr io.Writer) *cobra.Command {
	root := &rootCommand{ctx: ctx}

	root.cmd = &cobra.Command{
		Use:           "gendb",
		Short:         "Generate synthetic person records",
		Long:          description,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return root.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if root.closeLog != nil {
				return root.closeLog()
			}
			return nil
		},
	}
	root.cmd.SetOut(stdout)
	root.cmd.SetErr(stderr)
	root.cmd.SetContext(ctx)

	flags := root.cmd.PersistentFlags()
	flags.StringVar(&root.envFile, "env-file", ".env", "load environment variables from this file if it exists")
	flags.StringVar(&root.logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	flags.StringVar(&root.data.LocalityPath, "cities", "", "locality file (default DATA_LOCALITY_PATH or bundled)")
	flags.StringVar(&root.data.PostalCodePath, "postal-codes", "", "postal code file (default DATA_POSTAL_CODE_PATH or bundled)")
	flags.StringVar(&root.data.NamePath, "names", "", "first name file (default DATA_NAME_PATH or bundled)")
	flags.StringVar(&root.data.SurnamePath, "surnames", "", "surname file (default DATA_SURNAME_PATH or bundled)")

	root.cmd.AddCommand(
		generateCommand(root),
		pidCommand(root),
		nameCommand(root),
		formatsCommand(root),
	)
	return root.cmd
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand(ctx, stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(stderr, "Error:", describe(err))
		return 1
	}
	return 0
}

// init loads the environment and configuration and sets up logging on
// stderr so stdout stays clean for table output.
func (root *rootCommand) init(cmd *cobra.Command) error {
	if root.envFile != "" {
		if _, err := os.Stat(root.envFile); err == nil {
			if err := godotenv.Load(root.envFile); err != nil {
				return fmt.Errorf("load %s: %w", root.envFile, err)
			}
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if root.logLevel != "" {
		cfg.Logging.Level = root.logLevel
	}
	overrideData(&cfg.Data, root.data)
	root.cfg = cfg

	closeLog, err := logging.Setup(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	if err != nil {
		return err
	}
	root.closeLog = closeLog
	return nil
}

// getService loads reference data on first use.
func (root *rootCommand) getService(opts ...core.Option) (*core.Service, error) {
	if root.service != nil {
		return root.service, nil
	}
	svc, err := core.NewServiceFromConfig(root.ctx, root.cfg, nil, opts...)
	if err != nil {
		return nil, err
	}
	root.service = svc
	return svc, nil
}

// describe renders err with its user message when one is known.
func describe(err error) string {
	if core.IsUserFacing(err) {
		return fmt.Sprintf("%v\n%s", err, core.FormatUserError(err))
	}
	return err.Error()
}

// overrideData replaces the reference data paths set on the command line.
func overrideData(dst *config.DataConfig, flags config.DataConfig) {
	for _, p := range []struct {
		dst *string
		src string
	}{
		{&dst.LocalityPath, flags.LocalityPath},
		{&dst.PostalCodePath, flags.PostalCodePath},
		{&dst.NamePath, flags.NamePath},
		{&dst.SurnamePath, flags.SurnamePath},
	} {
		if p.src != "" {
			*p.dst = p.src
		}
	}
}
