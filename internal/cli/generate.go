package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/gendb/internal/core"
	"github.com/JonMunkholm/gendb/internal/export"
)

const generateLongDescription = `Command "generate"

Generates a table and writes it to every --out target. Each target is
FORMAT=DESTINATION, for example:

  gendb generate -n 1000 --out csv=people.csv --out parquet=s3://bucket/people.parquet
  gendb generate --profile nightly.yaml --out sql=postgres://user:pass@db/test

Destinations are local paths, s3://bucket/key URLs or, for the sql format,
a postgres:// connection string or an SQLite file. Without --out the table
is written to stdout as CSV.

A failed target does not stop the others; the command exits non-zero if any
target failed.`

var errTargetsFailed = errors.New("one or more export targets failed")

type generateOptions struct {
	profile          string
	rows             int
	seed             int64
	femaleChance     float64
	secondNameChance float64
	from             int
	to               int
	uniformCities    bool
	uniformNames     bool
	out              []string
}

func generateCommand(root *rootCommand) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a table and export it",
		Long:  generateLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.runGenerate(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.profile, "profile", "p", "", "YAML profile with settings and targets")
	flags.IntVarP(&opts.rows, "rows", "n", 0, "number of rows (default GEN_SAMPLE_SIZE)")
	flags.Int64Var(&opts.seed, "seed", 0, "seed the random source for a reproducible table")
	flags.Float64Var(&opts.femaleChance, "female-chance", 0, "percent chance a person is female")
	flags.Float64Var(&opts.secondNameChance, "second-name-chance", 0, "percent chance of a second name")
	flags.IntVar(&opts.from, "from", 0, "earliest birth year")
	flags.IntVar(&opts.to, "to", 0, "latest birth year")
	flags.BoolVar(&opts.uniformCities, "uniform-cities", false, "draw cities uniformly instead of by population")
	flags.BoolVar(&opts.uniformNames, "uniform-names", false, "draw first names uniformly instead of by frequency")
	flags.StringArrayVarP(&opts.out, "out", "o", nil, "export target FORMAT=DESTINATION (repeatable)")
	return cmd
}

func (root *rootCommand) runGenerate(cmd *cobra.Command, opts *generateOptions) error {
	if cmd.Flags().Changed("seed") {
		root.cfg.Generation.Seed = opts.seed
	}
	svc, err := root.getService()
	if err != nil {
		return err
	}

	cfg := svc.Defaults()
	spec := map[string]string{}
	if opts.profile != "" {
		p, err := LoadProfile(opts.profile, cfg)
		if err != nil {
			return err
		}
		cfg = p.Config
		for k, v := range p.Targets {
			spec[k] = v
		}
	}

	flags := cmd.Flags()
	if flags.Changed("rows") {
		cfg.SampleSize = opts.rows
	}
	if flags.Changed("female-chance") {
		cfg.FemaleChance = opts.femaleChance
	}
	if flags.Changed("second-name-chance") {
		cfg.SecondNameChance = opts.secondNameChance
	}
	if flags.Changed("from") {
		cfg.BirthYearFrom = opts.from
	}
	if flags.Changed("to") {
		cfg.BirthYearTo = opts.to
	}
	if flags.Changed("uniform-cities") {
		cfg.LocalityWeighted = !opts.uniformCities
	}
	if flags.Changed("uniform-names") {
		cfg.NameWeighted = !opts.uniformNames
	}

	for _, target := range opts.out {
		name, dest, ok := strings.Cut(target, "=")
		if !ok {
			return fmt.Errorf("%w: --out %q must be FORMAT=DESTINATION", core.ErrInvalidRequest, target)
		}
		spec[strings.TrimSpace(name)] = strings.TrimSpace(dest)
	}

	// Without targets the table goes to stdout.
	if len(spec) == 0 {
		table, err := svc.Generate(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		return export.Encode(cmd.Context(), cmd.OutOrStdout(), export.CSV, table)
	}

	run, err := svc.Run(cmd.Context(), cfg, spec)
	if err != nil {
		return err
	}
	printRun(cmd, run)
	if run.Failed() {
		return errTargetsFailed
	}
	return nil
}

func printRun(cmd *cobra.Command, run *core.Run) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s: %d rows, %d PID collisions, %s\n",
		run.ID, run.Rows, run.PIDCollisions, run.Duration.Round(time.Millisecond))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FORMAT\tDESTINATION\tBYTES\tSTATUS")
	for _, res := range run.Results {
		status := "ok"
		if res.Error != nil {
			status = fmt.Sprintf("failed (%s): %v", res.Error.Code, res.Err)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", res.Format, res.Destination, res.Bytes, status)
	}
	_ = tw.Flush()

	for _, w := range run.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}
}

func formatsCommand(root *rootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List export formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FORMAT\tEXTENSION\tDOWNLOAD")
			for _, f := range export.Formats() {
				fmt.Fprintf(tw, "%s\t%s\t%t\n", f, f.Extension(), f.Streamable())
			}
			return tw.Flush()
		},
	}
}
