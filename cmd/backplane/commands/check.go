package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/backplane/internal/cli/output"
	"github.com/marmos91/backplane/pkg/lifecycle"
	"github.com/marmos91/backplane/pkg/stack"
)

// defaultCheckTimeout bounds `check` when STARTUP_TIMEOUT is unset.
const defaultCheckTimeout = 30 * time.Second

var (
	checkOutput  string
	checkNoColor bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Connect every backend once and report the result",
	Long: `Run the startup sequence once, print the state of each backend and
disconnect everything.

Exits non-zero when a required backend (PostgreSQL, Neo4j) could not be
reached. Optional backends that fail are reported but do not change the
exit code.

Examples:
  backplane check
  backplane check -o json`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkOutput, "output", "o", "table", "Output format (table|json|yaml)")
	checkCmd.Flags().BoolVar(&checkNoColor, "no-color", false, "Disable colored output")
}

// CheckReport is the result of `backplane check`.
type CheckReport struct {
	Status   string        `json:"status" yaml:"status"`
	Backends []CheckResult `json:"backends" yaml:"backends"`
}

// CheckResult is one backend's line in a CheckReport.
type CheckResult struct {
	Name        string `json:"name" yaml:"name"`
	Criticality string `json:"criticality" yaml:"criticality"`
	State       string `json:"state" yaml:"state"`
	Duration    string `json:"duration,omitempty" yaml:"duration,omitempty"`
	ErrorKind   string `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
}

func newCheckReport(status lifecycle.Status, statuses []lifecycle.BackendStatus) CheckReport {
	report := CheckReport{Status: status.String(), Backends: make([]CheckResult, 0, len(statuses))}
	for _, st := range statuses {
		r := CheckResult{
			Name:        st.Name,
			Criticality: st.Criticality.String(),
			State:       st.State.String(),
			ErrorKind:   st.ErrorKind(),
		}
		if st.ConnectDuration > 0 {
			r.Duration = st.ConnectDuration.Round(time.Millisecond).String()
		}
		if st.Err != nil {
			r.Error = st.Err.Error()
		}
		report.Backends = append(report.Backends, r)
	}
	return report
}

// Headers implements output.TableRenderer.
func (r CheckReport) Headers() []string {
	return []string{"Backend", "Criticality", "State", "Duration", "Error"}
}

// Rows implements output.TableRenderer.
func (r CheckReport) Rows() [][]string {
	rows := make([][]string, 0, len(r.Backends))
	for _, b := range r.Backends {
		duration := b.Duration
		if duration == "" {
			duration = "-"
		}
		rows = append(rows, []string{b.Name, b.Criticality, b.State, duration, b.Error})
	}
	return rows
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(checkOutput)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	timeout := cfg.Server.StartupTimeout
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}

	st := stack.New(cfg)

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	startErr := st.Manager.Start(ctx)
	cancel()

	report := newCheckReport(st.Manager.Status(), st.Manager.Statuses())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	st.Manager.Shutdown(shutdownCtx)
	shutdownCancel()

	printer := output.NewPrinter(os.Stdout, format, !checkNoColor)
	if err := printer.Print(report); err != nil {
		return err
	}

	if format == output.FormatTable {
		switch report.Status {
		case lifecycle.StatusReady.String():
			printer.Success("All backends ready")
		case lifecycle.StatusDegraded.String():
			printer.Warning("Optional backends unavailable, running degraded")
		default:
			printer.Error("Required backend unavailable")
		}
	}

	if startErr != nil {
		return fmt.Errorf("check failed: %w", startErr)
	}
	return nil
}
