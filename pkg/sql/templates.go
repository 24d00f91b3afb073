package sql

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cohortlens/insights-engine/pkg/apperrors"
	"github.com/cohortlens/insights-engine/pkg/models"
)

// parameterRegex matches {{parameter_name}} placeholders in SQL templates.
// Parameter names must start with a letter or underscore, followed by any
// number of alphanumeric characters or underscores.
var parameterRegex = regexp.MustCompile(`\{\{([a-zA-Z_]\w*)\}\}`)

// Canonical denominator subqueries. Placeholders are filled with already-quoted
// SQL fragments by RenderTemplate.
const (
	ClassDaysTemplate = "SELECT COUNT(DISTINCT cd.day_date) FROM curriculum_days cd " +
		"WHERE cd.cohort = {{cohort}} AND {{weekday_exclusion}}"

	ActiveBuildersTemplate = "SELECT COUNT(*) FROM users u " +
		"WHERE u.cohort = {{cohort}} AND u.active = true AND {{builder_exclusion}}"

	TotalTasksTemplate = "SELECT COUNT(*) FROM tasks t " +
		"JOIN time_blocks tb ON t.block_id = tb.id " +
		"JOIN curriculum_days cd ON tb.day_id = cd.id " +
		"WHERE cd.cohort = {{cohort}}"
)

// familyTemplates maps each denominator family to its subquery template.
var familyTemplates = map[models.DenominatorFamily]string{
	models.DenominatorClassDays:      ClassDaysTemplate,
	models.DenominatorActiveBuilders: ActiveBuildersTemplate,
	models.DenominatorTotalTasks:     TotalTasksTemplate,
}

// DenominatorOptions configures the subqueries and the literals the validator watches.
type DenominatorOptions struct {
	Cohort           string
	ExcludedUserIDs  []int
	NonClassWeekdays []int // EXTRACT(DOW) values: 0 = Sunday
	WatchedLiterals  map[models.DenominatorFamily][]int
}

// DefaultDenominatorOptions returns the options for the current cohort calendar.
func DefaultDenominatorOptions() DenominatorOptions {
	return DenominatorOptions{
		Cohort:           "March 2025",
		ExcludedUserIDs:  []int{129, 5, 240, 326, 324, 325},
		NonClassWeekdays: []int{4, 5},
		WatchedLiterals: map[models.DenominatorFamily][]int{
			models.DenominatorClassDays:      {24, 25, 26, 27, 28, 32},
			models.DenominatorActiveBuilders: {32, 75, 76, 77, 78, 79, 80},
			models.DenominatorTotalTasks:     {107, 143, 224},
		},
	}
}

// ExtractParameters finds all {{param}} placeholders in a template and returns
// a deduplicated list of parameter names in order of first appearance.
func ExtractParameters(template string) []string {
	matches := parameterRegex.FindAllStringSubmatch(template, -1)
	seen := make(map[string]bool)
	var params []string

	for _, match := range matches {
		name := match[1]
		if !seen[name] {
			seen[name] = true
			params = append(params, name)
		}
	}

	return params
}

// RenderTemplate replaces every {{param}} with its SQL fragment. Fragments are
// inserted verbatim; callers quote values with QuoteLiteral or NotIn first.
func RenderTemplate(template string, fragments map[string]string) (string, error) {
	for _, name := range ExtractParameters(template) {
		if _, ok := fragments[name]; !ok {
			return "", fmt.Errorf("parameter {{%s}} used in template but not supplied", name)
		}
	}

	return parameterRegex.ReplaceAllStringFunc(template, func(match string) string {
		name := parameterRegex.FindStringSubmatch(match)[1]
		return fragments[name]
	}), nil
}

// QuoteLiteral checks value for injection patterns and returns it as a
// single-quoted SQL string literal.
func QuoteLiteral(name, value string) (string, error) {
	if result := CheckParameterForInjection(name, value); result != nil {
		return "", fmt.Errorf("%w: %s (fingerprint %s)", apperrors.ErrUnsafeTemplateValue, name, result.Fingerprint)
	}
	return "'" + strings.ReplaceAll(value, "'", "''") + "'", nil
}

// NotIn renders "expr NOT IN (v1, v2, ...)". With no values it renders TRUE,
// since NOT IN over an empty or NULL list would exclude every row.
func NotIn(expr string, values []int) string {
	if len(values) == 0 {
		return "TRUE"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return expr + " NOT IN (" + strings.Join(parts, ", ") + ")"
}

// renderSubqueries renders every family's subquery for opts.
func renderSubqueries(opts DenominatorOptions) (map[models.DenominatorFamily]string, error) {
	cohort, err := QuoteLiteral("cohort", opts.Cohort)
	if err != nil {
		return nil, err
	}

	fragments := map[string]string{
		"cohort":            cohort,
		"weekday_exclusion": NotIn("EXTRACT(DOW FROM cd.day_date)", opts.NonClassWeekdays),
		"builder_exclusion": NotIn("u.user_id", opts.ExcludedUserIDs),
	}

	rendered := make(map[models.DenominatorFamily]string, len(familyTemplates))
	for family, template := range familyTemplates {
		sqlText, err := RenderTemplate(template, fragments)
		if err != nil {
			return nil, fmt.Errorf("render %s subquery: %w", family, err)
		}
		rendered[family] = sqlText
	}
	return rendered, nil
}
