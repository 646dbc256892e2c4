package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/psantana5/entrypoint/internal/app"
	"github.com/psantana5/entrypoint/internal/sequencer"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:   "plan [--] command [args...]",
	Short: "Show what the entrypoint would do",
	Long:  `Describe the setup steps and resolve the delegated command without running anything.`,
	RunE:  runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().SetInterspersed(false)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// A plan never leaves files behind.
	cfg.Report.Path = ""
	cfg.Report.MetricsTextfile = ""
	cfg.Tracing.Endpoint = ""

	a, err := app.New(cmd.Context(), cfg, args)
	if err != nil {
		return err
	}
	return writePlan(cmd.OutOrStdout(), a.Plan(args), outputFormat)
}

func writePlan(w io.Writer, plan []sequencer.PlanEntry, format string) error {
	switch format {
	case "json":
		out, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(w, string(out))
	case "yaml":
		out, err := yaml.Marshal(plan)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		fmt.Fprint(w, string(out))
	case "table", "":
		table := tablewriter.NewWriter(w)
		table.Header("#", "Step", "Policy", "Runs", "Note")
		for _, e := range plan {
			table.Append(strconv.Itoa(e.Order), e.Name, e.Policy, e.Description, e.Note)
		}
		table.Render()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	return nil
}
