package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/propfolio/insight-engine/pkg/models"
)

// monthLabels is the canonical January through December label set. Month
// bucketed charts always carry all twelve labels; months with no data plot
// as zero rather than disappearing from the axis.
var monthLabels = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// NoDataMessage is what the narrative mode says for an empty result. Callers
// never see an empty string.
const NoDataMessage = "No matching records were found for your question."

// Shaper turns raw query results into chart datasets or narrative text. All
// shaping is deterministic: the same result always produces the same output.
type Shaper struct{}

// NewShaper creates a result shaper.
func NewShaper() *Shaper {
	return &Shaper{}
}

// MonthlyBarChart builds a twelve-month bar chart from rows carrying month
// (1..12) and value columns. Rows for months outside the window are dropped;
// missing months are zero-filled. Out-of-range month numbers are skipped.
func (s *Shaper) MonthlyBarChart(result *models.QueryResult, monthCol, valueCol, seriesLabel, backgroundColor string) *models.ChartDataset {
	data := make([]float64, 12)
	if result != nil {
		for _, row := range result.Rows {
			m, ok := asInt(row[monthCol])
			if !ok || m < 1 || m > 12 {
				continue
			}
			v, _ := asFloat(row[valueCol])
			data[m-1] += v
		}
	}

	return &models.ChartDataset{
		Labels: monthLabels,
		Datasets: []models.ChartSeries{{
			Label:           seriesLabel,
			Data:            data,
			BackgroundColor: backgroundColor,
		}},
	}
}

// lineSeriesSpec names one value column to plot and its display hints.
type lineSeriesSpec struct {
	column  string
	label   string
	color   string
	dashed  bool
	filled  bool
	tension float64
}

// PeriodLineChart builds a multi-series line chart bucketed by a period
// column. Labels are the distinct period values in ascending order; every
// series is zero-filled to the full label set so all series share cardinality.
func (s *Shaper) PeriodLineChart(result *models.QueryResult, periodCol string, specs []lineSeriesSpec) *models.ChartDataset {
	type bucket struct {
		label  string
		values map[string]float64
	}

	buckets := make(map[string]*bucket)
	order := make([]string, 0)
	if result != nil {
		for _, row := range result.Rows {
			label := periodLabel(row[periodCol])
			if label == "" {
				continue
			}
			b, ok := buckets[label]
			if !ok {
				b = &bucket{label: label, values: make(map[string]float64)}
				buckets[label] = b
				order = append(order, label)
			}
			for _, spec := range specs {
				v, _ := asFloat(row[spec.column])
				b.values[spec.column] += v
			}
		}
	}
	sort.Strings(order)

	series := make([]models.ChartSeries, 0, len(specs))
	for _, spec := range specs {
		data := make([]float64, len(order))
		for i, label := range order {
			data[i] = buckets[label].values[spec.column]
		}
		cs := models.ChartSeries{
			Label:       spec.label,
			Data:        data,
			Fill:        spec.filled,
			Tension:     spec.tension,
			BorderColor: spec.color,
		}
		if spec.dashed {
			cs.BorderDash = []int{5, 5}
		}
		series = append(series, cs)
	}

	return &models.ChartDataset{Labels: order, Datasets: series}
}

// Narrative renders a result as plain text, one line per row in input order.
// No re-sorting, no summarization. An empty result yields the no-data message.
func (s *Shaper) Narrative(result *models.QueryResult) string {
	if result.Empty() {
		return NoDataMessage
	}

	var b strings.Builder
	for i, row := range result.Rows {
		if i > 0 {
			b.WriteString("\n")
		}
		parts := make([]string, 0, len(result.Columns))
		for _, col := range result.Columns {
			parts = append(parts, fmt.Sprintf("%s: %s", col.Name, formatValue(row[col.Name])))
		}
		b.WriteString(strings.Join(parts, ", "))
	}

	if result.Truncated {
		fmt.Fprintf(&b, "\n(Showing the first %d rows; the full result was larger.)", result.RowCount)
	}
	return b.String()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "n/a"
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%.2f", val)
	case time.Time:
		return val.Format("2006-01-02")
	default:
		return fmt.Sprintf("%v", val)
	}
}

// periodLabel renders a period bucket value as a stable sortable label.
func periodLabel(v any) string {
	switch val := v.(type) {
	case time.Time:
		return val.Format("2006-01")
	case string:
		return val
	default:
		return ""
	}
}

func asInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int16:
		return int(val), true
	case int32:
		return int(val), true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	default:
		return 0, false
	}
}

func asFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	default:
		return 0, false
	}
}
