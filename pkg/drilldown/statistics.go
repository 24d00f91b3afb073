package drilldown

import (
	"math"

	"github.com/cohortlens/insights-engine/pkg/jsonutil"
	"github.com/cohortlens/insights-engine/pkg/models"
)

// Statistical thresholds. These are tuning knobs; detection logic reads them only through these names.
const (
	// StatsMinRows is the row count below which no statistics are computed.
	StatsMinRows = 3
	// OutlierStdDevThreshold is how many population standard deviations from the mean a value must be to count as an outlier.
	OutlierStdDevThreshold = 2.0
	// OutlierMinValues is the minimum number of parseable values a metric column needs for outlier detection.
	OutlierMinValues = 5
	// TrendMinRows is the minimum row count for a dated result to be treated as a trend.
	TrendMinRows = 5
	// ComparableMinRows and ComparableMaxRows bound result sizes where side-by-side comparison is meaningful.
	ComparableMinRows = 2
	ComparableMaxRows = 50
	// GroupingDistinctRatio caps distinct values (as a fraction of rows) for a column to suggest grouping.
	GroupingDistinctRatio = 0.5
)

// ColumnStatistics summarizes the parseable numeric values of one metric column.
type ColumnStatistics struct {
	Column       string
	ValidCount   int
	Mean         float64
	StdDev       float64 // Population standard deviation
	OutlierCount int
}

// HasOutliers reports whether the column qualifies for outlier detection and has at least one outlier.
func (s ColumnStatistics) HasOutliers() bool {
	return s.OutlierCount > 0
}

// ComputeColumnStatistics parses the column's values to numbers, dropping unparseable
// ones, and computes mean, population standard deviation and outlier count.
// Outliers are only counted when there are at least OutlierMinValues values and the
// standard deviation is nonzero.
func ComputeColumnStatistics(rows []models.Row, column string) ColumnStatistics {
	stats := ColumnStatistics{Column: column}

	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		if v, ok := jsonutil.FlexibleFloat(row[column]); ok {
			values = append(values, v)
		}
	}
	stats.ValidCount = len(values)
	if len(values) == 0 {
		return stats
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	stats.Mean = sum / float64(len(values))

	var sqDiff float64
	for _, v := range values {
		d := v - stats.Mean
		sqDiff += d * d
	}
	stats.StdDev = math.Sqrt(sqDiff / float64(len(values)))

	if len(values) < OutlierMinValues || stats.StdDev == 0 {
		return stats
	}

	limit := OutlierStdDevThreshold * stats.StdDev
	for _, v := range values {
		if math.Abs(v-stats.Mean) > limit {
			stats.OutlierCount++
		}
	}
	return stats
}

// resultSignals are the statistical flags of a DrillDownContext.
type resultSignals struct {
	hasOutliers         bool
	hasTrends           bool
	hasComparableGroups bool
}

// computeSignals derives the statistical flags. Everything is false below StatsMinRows.
func computeSignals(rows []models.Row, cols models.IdentifiedColumns) resultSignals {
	var signals resultSignals
	rowCount := len(rows)
	if rowCount < StatsMinRows {
		return signals
	}

	for _, col := range cols.MetricColumns {
		if ComputeColumnStatistics(rows, col).HasOutliers() {
			signals.hasOutliers = true
			break
		}
	}

	signals.hasTrends = len(cols.DateColumns) > 0 && rowCount >= TrendMinRows
	signals.hasComparableGroups = rowCount >= ComparableMinRows && rowCount <= ComparableMaxRows
	return signals
}

// hasGrouping reports whether any column repeats values enough to look categorical:
// more than one distinct value, but fewer than GroupingDistinctRatio of the rows.
func hasGrouping(rows []models.Row, columns []string) bool {
	limit := float64(len(rows)) * GroupingDistinctRatio
	for _, col := range columns {
		distinct := make(map[string]struct{})
		for _, row := range rows {
			distinct[jsonutil.FlexibleString(row[col])] = struct{}{}
		}
		n := len(distinct)
		if n > 1 && float64(n) < limit {
			return true
		}
	}
	return false
}
