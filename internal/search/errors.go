package search

import "errors"

var (
	// ErrEmptyQuery is returned when the query is blank
	ErrEmptyQuery = errors.New("search query cannot be empty")
	// ErrInvalidContentType is returned for a content type filter outside the known set
	ErrInvalidContentType = errors.New("invalid content type")
	// ErrGenerationFailed wraps failures inside the aggregation pipeline
	ErrGenerationFailed = errors.New("result generation failed")
)
