package main

import (
	"fmt"
	"os"
	"os/user"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs"
	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/generate"
	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/spec"
)

func newGenerateCommand() *cobra.Command {
	var (
		base    string
		actor   string
		setVars []string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "generate [spec-file]",
		Short: "Materialize a scaffold specification",
		Long: `Load a scaffold specification, validate it, and create the declared
directory tree under the base path inside a single transaction. On any
failure, everything already created is rolled back.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newCLILogger()
			if err != nil {
				return err
			}

			if actor == "" {
				actor = currentUser()
			}
			timestamp := time.Now().Format(time.RFC3339)

			vars, err := parseVars(setVars)
			if err != nil {
				return err
			}
			vars["user"] = actor
			vars["timestamp"] = timestamp

			root, err := spec.LoadFile(args[0], vars)
			if err != nil {
				return fmt.Errorf("invalid spec: %w", err)
			}

			opts := generate.Options{Actor: actor, Timestamp: timestamp}

			if dryRun {
				return printPlan(root, opts, base)
			}

			result, err := scaffoldfs.GenerateAt(base, root, opts, logger)
			if err != nil {
				reportFailure(err, result)
				return fmt.Errorf("scaffold generation failed")
			}

			for _, dir := range result.CreatedDirs {
				fmt.Printf("  %s %s/\n", color.GreenString("✓"), dir)
			}
			for _, file := range result.CreatedFiles {
				fmt.Printf("  %s %s\n", color.GreenString("✓"), file)
			}
			fmt.Printf("\n%s scaffold created under %s (%d dirs, %d files)\n",
				color.GreenString("✓"), base, len(result.CreatedDirs), len(result.CreatedFiles))
			return nil
		},
	}

	cmd.Flags().StringVar(&base, "base", ".", "Base directory to scaffold into")
	cmd.Flags().StringVar(&actor, "actor", "", "Name recorded as the creating actor (default: current user)")
	cmd.Flags().StringArrayVar(&setVars, "var", nil, "Additional spec variable as key=value (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the resolved plan without touching the filesystem")

	return cmd
}

func reportFailure(err error, result *generate.Result) {
	fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("✗"), err)
	if result == nil || result.Rollback == nil {
		return
	}
	report := result.Rollback
	if report.Complete() {
		fmt.Fprintf(os.Stderr, "%s all %d changes rolled back\n",
			color.GreenString("✓"), report.Attempted)
		return
	}
	fmt.Fprintf(os.Stderr, "%s rollback incomplete (%d of %d undo steps failed); inspect these paths:\n",
		color.YellowString("!"), report.Failed, report.Attempted)
	for _, warning := range report.Warnings {
		fmt.Fprintf(os.Stderr, "  %s %s\n", color.YellowString("!"), warning)
	}
}

func newCLILogger() (zerolog.Logger, error) {
	level, err := scaffoldfs.LogLevelFromString(logLevel)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	return scaffoldfs.NewLogger(os.Stderr, level), nil
}

func parseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs)+2)
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --var %q, expected key=value", pair)
		}
		vars[key] = value
	}
	return vars, nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}
