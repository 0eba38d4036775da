package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/FamilyScope/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Family membership
// ─────────────────────────────────────────────────────────────────────────────

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <patent-number>",
		Short: "Acquire a patent and add it to the family",
		Long: "Resolves the patent in the registry, fetches its full-text document for\n" +
			"claims and family candidates, then enriches the new member.",
		Example: "  famscope add US10123456B2\n  famscope add \"10,123,456\" -o json",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, svc, err := runContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			res, err := svc.Family.Add(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, addView{res})
		},
	}
}

func newImportCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import [patent-number...]",
		Short: "Add many patents, one after another",
		Long: "Imports identifiers from the arguments and from --file (one per line, '#'\n" +
			"starts a comment).  Failures are reported per identifier and do not stop\n" +
			"the batch.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := append([]string{}, args...)
			if file != "" {
				fromFile, err := readIdentifiers(file)
				if err != nil {
					return err
				}
				ids = append(ids, fromFile...)
			}
			if len(ids) == 0 {
				return errors.InvalidParam("no identifiers given")
			}

			ctx, cancel, svc, err := runContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			progress := func(done, total int) {
				fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d]\n", done, total)
			}
			report, err := svc.Family.Import(ctx, ids, progress)
			if err != nil {
				return err
			}
			return PrintResult(cmd, reportView{report})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "file with one identifier per line, - for stdin")
	return cmd
}

// readIdentifiers reads one identifier per line, skipping blanks and
// '#' comments.
func readIdentifiers(path string) ([]string, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidParam, "open identifier file")
		}
		defer f.Close()
		r = f
	}
	return parseIdentifiers(r)
}

func parseIdentifiers(r io.Reader) ([]string, error) {
	var ids []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		if line = strings.TrimSpace(line); line != "" {
			ids = append(ids, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidParam, "read identifiers")
	}
	return ids, nil
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List family members in date order",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, svc, err := runContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			c, err := svc.Family.List(ctx)
			if err != nil {
				return err
			}
			return PrintResult(cmd, collectionView{c})
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|patent-number>",
		Short: "Show one family member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, svc, err := runContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			rec, err := svc.Family.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, recordView{rec})
		},
	}
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id|patent-number>",
		Aliases: []string{"rm"},
		Short:   "Remove a member from the family",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, svc, err := runContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			rec, err := svc.Family.Get(ctx, args[0])
			if err != nil {
				return err
			}
			removed, err := svc.Family.Remove(ctx, rec.ID)
			if err != nil {
				return err
			}
			if cliCtx, _ := GetCLIContext(cmd); cliCtx != nil && cliCtx.OutputFormat != "text" {
				return PrintResult(cmd, recordView{removed})
			}
			PrintSuccess(cmd, "removed "+removed.Summary())
			return nil
		},
	}
}

func newRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id|patent-number>",
		Short: "Re-run enrichment for an errored or interrupted member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, svc, err := runContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			rec, err := svc.Family.Get(ctx, args[0])
			if err != nil {
				return err
			}
			rec, err = svc.Family.Retry(ctx, rec.ID)
			if err != nil {
				return err
			}
			return PrintResult(cmd, recordView{rec})
		},
	}
}

func newClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every member and stop any running import",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.InvalidParam("clear discards the whole family; pass --yes to confirm")
			}
			ctx, cancel, svc, err := runContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			if err := svc.Family.Clear(ctx); err != nil {
				return err
			}
			PrintSuccess(cmd, "family cleared")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm")
	return cmd
}

func newCandidatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "candidates <patent-number>",
		Short: "List family candidates cited by a patent without adding it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, svc, err := runContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			res, err := svc.Family.Candidates(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, candidatesView{res})
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Analysis
// ─────────────────────────────────────────────────────────────────────────────

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Run the family-wide overlap analysis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, svc, err := runContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			res, err := svc.Analysis.AnalyzeFamily(ctx)
			if err != nil {
				return err
			}
			return PrintResult(cmd, analysisView{res})
		},
	}
}

func newCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare <a> <b>",
		Short: "Compare the first independent claims of two members",
		Long:  "Members are given by id or patent number.  The earlier-dated member is treated as the original.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, svc, err := runContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			res, err := svc.Analysis.CompareClaims(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return PrintResult(cmd, comparisonView{res})
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Version
// ─────────────────────────────────────────────────────────────────────────────

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// Skips config loading.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "famscope %s\n  commit: %s\n  built:  %s\n", Version, GitCommit, BuildDate)
			return nil
		},
	}
}

//Personal.AI order the ending
