package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/psantana5/entrypoint/internal/report"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report <file>",
	Short: "Display a run report",
	Long:  `Read a report written by the entrypoint (report.path) and display it.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	run, err := report.ReadFile(args[0])
	if err != nil {
		return err
	}
	return writeReport(cmd.OutOrStdout(), run, outputFormat)
}

func writeReport(w io.Writer, run *report.Run, format string) error {
	switch format {
	case "json":
		out, err := json.MarshalIndent(run, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(w, string(out))
		return nil
	case "yaml":
		out, err := yaml.Marshal(run)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		fmt.Fprint(w, string(out))
		return nil
	case "table", "":
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	fmt.Fprintf(w, "Run:      %s\n", run.ID)
	fmt.Fprintf(w, "Started:  %s\n", run.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Host:     %s (%s/%s, %d CPUs)\n", run.Host.Hostname, run.Host.OS, run.Host.Architecture, run.Host.CPUs)
	fmt.Fprintf(w, "Command:  %s\n", strings.Join(run.Command, " "))
	if run.Resolved != "" {
		fmt.Fprintf(w, "Resolved: %s\n", run.Resolved)
	}
	fmt.Fprintf(w, "State:    %s\n", run.State)
	if run.Error != "" {
		fmt.Fprintf(w, "Error:    %s\n", run.Error)
	}
	fmt.Fprintln(w)

	if len(run.Steps) == 0 {
		fmt.Fprintln(w, "No steps recorded")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("Step", "Reason", "Exit", "Signal", "Duration", "Command")
	for _, s := range run.Steps {
		table.Append(
			s.Name,
			string(s.Reason),
			strconv.Itoa(s.ExitCode),
			s.Signal,
			s.Duration.String(),
			s.Command,
		)
	}
	table.Render()

	if failed := run.Failed(); len(failed) > 0 {
		fmt.Fprintf(w, "\n%d of %d setup steps failed (ignored)\n", len(failed), len(run.Steps))
	}
	return nil
}
