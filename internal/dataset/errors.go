package dataset

import "errors"

// Sentinel errors for dataset loading and lookup.
var (
	// ErrMissingData indicates a required column or table is absent.
	ErrMissingData = errors.New("missing data")
	// ErrColumnType indicates a column that must be numeric holds text.
	ErrColumnType = errors.New("column is not numeric")
	// ErrUnknownSport indicates a lookup for a sport the catalog does not hold.
	ErrUnknownSport = errors.New("unknown sport")
	// ErrManifest indicates a malformed or inconsistent scoreline.toml.
	ErrManifest = errors.New("invalid manifest")
)

// LoadError records a load-time failure with the source it came from.
type LoadError struct {
	Source string // file path or sqlite table
	Column string // offending column, if any
	Err    error
}

// Error returns a human-readable string including source and column context.
func (e *LoadError) Error() string {
	if e.Column != "" {
		return e.Source + ": column " + `"` + e.Column + `"` + ": " + e.Err.Error()
	}
	return e.Source + ": " + e.Err.Error()
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (e *LoadError) Unwrap() error {
	return e.Err
}
