package models

// ChartSeries is one plotted series with its display hints. The hint fields
// mirror what the chart renderer consumes and are passed through untouched.
type ChartSeries struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	Fill            bool      `json:"fill"`
	Tension         float64   `json:"tension,omitempty"`
	BorderColor     string    `json:"borderColor,omitempty"`
	BackgroundColor string    `json:"backgroundColor,omitempty"`
	BorderDash      []int     `json:"borderDash,omitempty"`
	BorderWidth     int       `json:"borderWidth,omitempty"`
}

// ChartDataset is the label/series structure consumed by the presentation
// layer. Every series shares the label cardinality: missing buckets are
// zero-filled by the shaper, not omitted.
type ChartDataset struct {
	Labels   []string      `json:"labels"`
	Datasets []ChartSeries `json:"datasets"`
}
