package engine

// Options tunes query evaluation
type Options struct {
	// QueryTimeout is the global maximum execution time in milliseconds,
	// zero or less for unlimited
	QueryTimeout int64 `yaml:"query_timeout_ms"`

	// Culture is the BCP 47 tag used to collate literals in ORDER BY
	Culture string `yaml:"culture"`

	// StrictStringComparison disables case folding and Unicode
	// normalization when comparing plain literals
	StrictStringComparison bool `yaml:"strict_string_comparison"`

	// ParallelEvaluation allows independent branches such as UNION operands
	// to be evaluated concurrently
	ParallelEvaluation bool `yaml:"parallel_evaluation"`
}

// DefaultOptions returns the default evaluation options
func DefaultOptions() Options {
	return Options{
		QueryTimeout:           180000,
		Culture:                "und",
		StrictStringComparison: true,
	}
}
