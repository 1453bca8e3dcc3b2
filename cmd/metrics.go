package main

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealbook/internal/model"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Manage synced deal metrics",
}

var metricsImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Upsert deal metrics from a JSON array",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrap(err, "open metrics file")
		}
		defer f.Close() //nolint:errcheck

		metrics, skipped, err := readDealMetrics(f)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close() //nolint:errcheck

		n, err := st.UpsertDealMetrics(ctx, metrics)
		if err != nil {
			return eris.Wrap(err, "upsert deal metrics")
		}

		zap.L().Info("metrics import complete",
			zap.String("file", args[0]),
			zap.Int("read", len(metrics)+skipped),
			zap.Int("skipped", skipped),
			zap.Int64("upserted", n),
		)
		return nil
	},
}

// readDealMetrics decodes a JSON array of deal metrics. Entries without a
// deal id or with negative revenue are skipped. A repeated deal id keeps
// the last entry.
func readDealMetrics(r io.Reader) ([]model.DealMetric, int, error) {
	var raw []model.DealMetric
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, 0, eris.Wrap(err, "decode metrics file")
	}

	index := make(map[string]int, len(raw))
	out := make([]model.DealMetric, 0, len(raw))
	skipped := 0
	for _, m := range raw {
		m.DealID = strings.TrimSpace(m.DealID)
		if m.DealID == "" || m.NetRevenue < 0 {
			skipped++
			continue
		}
		if i, ok := index[m.DealID]; ok {
			out[i] = m
			skipped++
			continue
		}
		index[m.DealID] = len(out)
		out = append(out, m)
	}
	return out, skipped, nil
}

func init() {
	metricsCmd.AddCommand(withConfigMode(metricsImportCmd, "import"))
	rootCmd.AddCommand(metricsCmd)
}
