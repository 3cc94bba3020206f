package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/generate"
	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/spec"
)

func newPlanCommand() *cobra.Command {
	var base string

	cmd := &cobra.Command{
		Use:   "plan [spec-file]",
		Short: "Print the resolved step plan for a specification",
		Long:  "Load a scaffold specification and print the ordered operations a generate run would perform, without executing anything.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor := currentUser()
			vars := map[string]string{
				"user":      actor,
				"timestamp": time.Now().Format(time.RFC3339),
			}
			root, err := spec.LoadFile(args[0], vars)
			if err != nil {
				return fmt.Errorf("invalid spec: %w", err)
			}
			opts := generate.Options{Actor: actor, Timestamp: vars["timestamp"]}
			return printPlan(root, opts, base)
		},
	}

	cmd.Flags().StringVar(&base, "base", ".", "Base directory the plan would scaffold into")
	return cmd
}

func printPlan(root *spec.DirectoryNode, opts generate.Options, base string) error {
	plan, err := generate.BuildPlan(root, opts)
	if err != nil {
		return fmt.Errorf("cannot plan spec: %w", err)
	}

	fmt.Printf("Plan for %q under %s (%d steps):\n", root.Name, base, len(plan.Steps))
	for i, step := range plan.Steps {
		class := "default"
		if step.Restricted {
			class = "restricted"
		}
		fmt.Printf("  %2d. %-12s %-40s mode=%s class=%s\n",
			i+1, step.Kind, step.Path, step.Mode, class)
	}
	return nil
}
