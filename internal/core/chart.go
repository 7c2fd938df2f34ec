package core

import "fmt"

const (
	ChartKindLine    = "line"
	PlaceholderTitle = "Select a Customer to View Transactions"
	SeriesName       = "Total Transaction Amount"
)

type (
	// ChartConfig is what the chart renderer consumes. Categories and the
	// data of the single series are aligned by index.
	ChartConfig struct {
		Kind   string        `json:"kind"`
		Title  string        `json:"title"`
		XAxis  CategoryAxis  `json:"xAxis"`
		YAxis  ValueAxis     `json:"yAxis"`
		Series []ChartSeries `json:"series"`
	}

	CategoryAxis struct {
		Title      string   `json:"title,omitempty"`
		Categories []string `json:"categories"`
	}

	ValueAxis struct {
		Title string `json:"title,omitempty"`
	}

	ChartSeries struct {
		Name string    `json:"name"`
		Type string    `json:"type"`
		Data []float64 `json:"data"`
	}
)

// PlaceholderChart is shown before any customer is selected.
func PlaceholderChart() ChartConfig {
	return ChartConfig{
		Kind:   ChartKindLine,
		Title:  PlaceholderTitle,
		XAxis:  CategoryAxis{Categories: []string{}},
		Series: []ChartSeries{},
	}
}

// NewCustomerChart builds the line chart of one customer's date aggregate.
// An empty aggregate yields a valid chart with an empty series.
func NewCustomerChart(customerID int64, agg DateAggregate) ChartConfig {
	return ChartConfig{
		Kind:  ChartKindLine,
		Title: fmt.Sprintf("Customer %d Transactions", customerID),
		XAxis: CategoryAxis{Title: "Date", Categories: agg.Categories()},
		YAxis: ValueAxis{Title: "Total Amount"},
		Series: []ChartSeries{{
			Name: SeriesName,
			Type: ChartKindLine,
			Data: agg.Totals(),
		}},
	}
}

// IsPlaceholder reports whether c is the no-selection chart.
func (c ChartConfig) IsPlaceholder() bool {
	return c.Title == PlaceholderTitle && len(c.Series) == 0
}
