package templates

type Option struct {
	Value int
	Label string
}

// TableRow is one team line, already offset by the threshold.
type TableRow struct {
	Team   string  `json:"team"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Hue    float64 `json:"hue"`
	// Display strings, rounded the same way as the page cells.
	MeanText   string `json:"mean_text"`
	StdDevText string `json:"stddev_text"`
}

type DashboardData struct {
	Events           []Option
	Divisions        []Option
	SelectedEvent    int
	SelectedDivision int
	Threshold        float64
	Rows             []TableRow
	Matches          int
	ComputedAgo      string
	Error            string
}
