package fetcher

// Outcome represents the result of processing one symbol.
// It is produced by worker goroutines and aggregated by the coordinator.
type Outcome struct {
	// Symbol is the normalized symbol that was requested
	Symbol string

	// Variation is the resource key that succeeded; empty on failure
	Variation string

	// Path is where the artifact was written; empty on failure
	Path string

	// Attempts lists every variation tried, in order
	Attempts []string

	// Err holds the last error seen when every variation failed.
	// If Err is not nil, Variation and Path should be considered invalid.
	Err error
}

// Succeeded reports whether an artifact was persisted for the symbol
func (o Outcome) Succeeded() bool {
	return o.Err == nil && o.Path != ""
}
