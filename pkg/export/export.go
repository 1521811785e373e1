package export

// Dataset defines tabular export content.
type Dataset struct {
	Title   string
	Footer  string
	Headers []string
	Rows    []map[string]string
}
