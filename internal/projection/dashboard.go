package projection

import (
	"github.com/shopspring/decimal"

	"github.com/sells-group/dealbook/internal/model"
)

// SummarizeDashboard rolls the dashboard rows up by lifecycle bucket.
// Rows in the other bucket count toward the source breakdown and the
// overall coverage but not toward either revenue total.
func SummarizeDashboard(rows []model.ProjectionRow) model.DashboardSummary {
	var inProcess, booked []float64
	sum := emptyDashboard().Summary

	var projected int

	for _, row := range rows {
		sum.BySource[row.Source]++

		var t *model.BucketTotals
		var values *[]float64
		switch row.Bucket {
		case model.BucketInProcess:
			t, values = &sum.InProcess, &inProcess
		case model.BucketBooked:
			t, values = &sum.Booked, &booked
		}
		if t != nil {
			t.Requests++
		}
		if row.ProjectedRevenue != nil {
			projected++
			if t != nil {
				t.ProjectedRequests++
				*values = append(*values, *row.ProjectedRevenue)
			}
		}
		sum.LatestMetricsSyncAt = latest(sum.LatestMetricsSyncAt, row.MetricsSyncedAt)
	}

	sum.InProcess.ProjectedRevenue = sumCents(inProcess)
	sum.InProcess.CoveragePct = coverage(sum.InProcess.ProjectedRequests, sum.InProcess.Requests)
	sum.Booked.ProjectedRevenue = sumCents(booked)
	sum.Booked.CoveragePct = coverage(sum.Booked.ProjectedRequests, sum.Booked.Requests)
	sum.TotalProjectedRevenue = sumCents([]float64{sum.InProcess.ProjectedRevenue, sum.Booked.ProjectedRevenue})
	sum.CoveragePct = coverage(projected, len(rows))
	return sum
}

// coverage returns part/whole as a percentage rounded to two decimals.
func coverage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(int64(whole)), 2).
		InexactFloat64()
}

func emptyDashboard() model.Dashboard {
	return model.Dashboard{
		Rows: []model.ProjectionRow{},
		Summary: model.DashboardSummary{
			BySource: map[model.ProjectionSource]int{},
		},
	}
}
