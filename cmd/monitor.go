package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealbook/internal/monitoring"
)

var monitorFormat string

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Check deal metric freshness",
}

var monitorCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Collect one metrics snapshot and report alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close() //nolint:errcheck

		snap, err := monitoring.NewCollector(st, cfg.Projection.FactBatchSize).Collect(ctx)
		if err != nil {
			return err
		}

		alerter := monitoring.NewAlerter(cfg.Monitoring)
		alerts := alerter.Evaluate(snap)
		if sent := alerter.SendAlerts(ctx, alerts); sent > 0 {
			zap.L().Info("monitor: alerts delivered", zap.Int("sent", sent))
		}

		return writeOutput(cmd.OutOrStdout(), monitorFormat, monitorReport{Snapshot: snap, Alerts: alerts})
	},
}

type monitorReport struct {
	Snapshot *monitoring.MetricsSnapshot `json:"snapshot" yaml:"snapshot"`
	Alerts   []monitoring.Alert          `json:"alerts" yaml:"alerts"`
}

func init() {
	monitorCheckCmd.Flags().StringVar(&monitorFormat, "format", "json", "output format: json or yaml")
	monitorCmd.AddCommand(withConfigMode(monitorCheckCmd, "monitor"))
	rootCmd.AddCommand(monitorCmd)
}
