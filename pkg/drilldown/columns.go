package drilldown

import (
	"strings"

	"github.com/cohortlens/insights-engine/pkg/jsonutil"
	"github.com/cohortlens/insights-engine/pkg/models"
)

// ColumnRole is the bucket a column is classified into.
type ColumnRole string

const (
	ColumnRoleID           ColumnRole = "id"
	ColumnRoleName         ColumnRole = "name"
	ColumnRoleDate         ColumnRole = "date"
	ColumnRoleMetric       ColumnRole = "metric"
	ColumnRoleUnclassified ColumnRole = "unclassified"
)

// columnRule assigns a role when match returns true. Rules are evaluated in
// order and the first match wins, so each column lands in at most one bucket.
type columnRule struct {
	role  ColumnRole
	match func(lowerName string, firstValue any) bool
}

var columnRules = []columnRule{
	{
		role: ColumnRoleID,
		match: func(name string, _ any) bool {
			return name == "id" || strings.HasSuffix(name, "_id")
		},
	},
	{
		role: ColumnRoleName,
		match: func(name string, _ any) bool {
			return name == "email" || strings.Contains(name, "name") || strings.Contains(name, "title")
		},
	},
	{
		role: ColumnRoleDate,
		match: func(name string, _ any) bool {
			return containsAny(name, "date", "time", "day")
		},
	},
	{
		role: ColumnRoleMetric,
		match: func(_ string, firstValue any) bool {
			_, ok := jsonutil.FlexibleFloat(firstValue)
			return ok
		},
	},
}

// ClassifyColumn returns the role of a single column given the first row's value for it.
func ClassifyColumn(name string, firstValue any) ColumnRole {
	lower := strings.ToLower(name)
	for _, rule := range columnRules {
		if rule.match(lower, firstValue) {
			return rule.role
		}
	}
	return ColumnRoleUnclassified
}

// ClassifyColumns partitions the result set's columns into id/name/date/metric buckets.
// Unclassified columns are dropped. Bucket order follows column order.
func ClassifyColumns(rs models.ResultSet) models.IdentifiedColumns {
	identified := models.IdentifiedColumns{
		IDColumns:     []string{},
		NameColumns:   []string{},
		MetricColumns: []string{},
		DateColumns:   []string{},
	}

	var firstRow models.Row
	if len(rs.Rows) > 0 {
		firstRow = rs.Rows[0]
	}

	for _, col := range rs.ColumnNames() {
		var firstValue any
		if firstRow != nil {
			firstValue = firstRow[col]
		}

		switch ClassifyColumn(col, firstValue) {
		case ColumnRoleID:
			identified.IDColumns = append(identified.IDColumns, col)
		case ColumnRoleName:
			identified.NameColumns = append(identified.NameColumns, col)
		case ColumnRoleDate:
			identified.DateColumns = append(identified.DateColumns, col)
		case ColumnRoleMetric:
			identified.MetricColumns = append(identified.MetricColumns, col)
		}
	}

	return identified
}

// containsAny reports whether s contains any of the substrings.
func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// anyColumnContains reports whether any lower-cased column name contains one of the substrings.
func anyColumnContains(lowerColumns []string, substrs ...string) bool {
	for _, col := range lowerColumns {
		if containsAny(col, substrs...) {
			return true
		}
	}
	return false
}

func lowerAll(names []string) []string {
	lower := make([]string, len(names))
	for i, name := range names {
		lower[i] = strings.ToLower(name)
	}
	return lower
}
