package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/gendb/internal/core"
	"github.com/JonMunkholm/gendb/internal/pid"
	"github.com/JonMunkholm/gendb/internal/refdata"
	"github.com/JonMunkholm/gendb/internal/synth"
)

var errInvalidPIDs = errors.New("one or more identifiers are invalid")

func pidCommand(root *rootCommand) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pid",
		Short: "Issue and validate PIDs",
	}
	cmd.AddCommand(pidIssueCommand(root), pidValidateCommand(root))
	return cmd
}

func pidIssueCommand(root *rootCommand) *cobra.Command {
	var (
		birth  string
		gender string
		count  int
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue unique PIDs for a birth date and gender",
		Example: `  gendb pid issue --birth 1987-04-23 --gender F
  gendb pid issue --birth 2001-12-31 --gender M --count 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := time.Parse(synth.DateLayout, birth)
			if err != nil {
				return fmt.Errorf("%w: --birth must be YYYY-MM-DD", core.ErrInvalidRequest)
			}
			g, err := refdata.ParseGender(gender)
			if err != nil {
				return fmt.Errorf("%w: %q", pid.ErrInvalidGender, gender)
			}
			if count < 1 {
				return fmt.Errorf("%w: --count must be at least 1", core.ErrInvalidRequest)
			}

			// Identifiers only need the in-memory registry, not reference data.
			gen := pid.NewGenerator(pid.WithMaxAttempts(root.cfg.Generation.PIDMaxAttempts))
			for range count {
				id, err := gen.Issue(date, g)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&birth, "birth", "", "birth date YYYY-MM-DD")
	cmd.Flags().StringVar(&gender, "gender", "", "M or F")
	cmd.Flags().IntVar(&count, "count", 1, "number of identifiers")
	_ = cmd.MarkFlagRequired("birth")
	_ = cmd.MarkFlagRequired("gender")
	return cmd
}

func pidValidateCommand(root *rootCommand) *cobra.Command {
	return &cobra.Command{
		Use:     "validate PID...",
		Short:   "Check PIDs and print the birth date and gender they encode",
		Example: "  gendb pid validate 87042312345",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := false
			for _, arg := range args {
				dec, err := pid.Decode(strings.TrimSpace(arg))
				if err != nil {
					failed = true
					fmt.Fprintf(out, "%s\tinvalid\t%s\n", arg, core.MapError(err).Message)
					continue
				}
				fmt.Fprintf(out, "%s\tvalid\t%s\t%s\n", arg, dec.BirthDate.Format(synth.DateLayout), string(dec.Gender))
			}
			if failed {
				return errInvalidPIDs
			}
			return nil
		},
	}
}

func nameCommand(root *rootCommand) *cobra.Command {
	var (
		year    int
		gender  string
		uniform bool
	)
	cmd := &cobra.Command{
		Use:     "name",
		Short:   "Draw one first name for a birth year and gender",
		Example: "  gendb name --year 1985 --gender F",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := refdata.ParseGender(gender)
			if err != nil {
				return fmt.Errorf("%w: %q", pid.ErrInvalidGender, gender)
			}
			svc, err := root.getService()
			if err != nil {
				return err
			}
			name, err := svc.SampleName(year, g, !uniform)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", time.Now().Year()-30, "birth year, clamped to the loaded range")
	cmd.Flags().StringVar(&gender, "gender", "", "M or F")
	cmd.Flags().BoolVar(&uniform, "uniform", false, "ignore name frequencies")
	_ = cmd.MarkFlagRequired("gender")
	return cmd
}
