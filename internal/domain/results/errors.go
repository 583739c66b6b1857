package results

import "errors"

// ErrNotFound indicates no analysis_results row matched the identifier.
var ErrNotFound = errors.New("analysis result not found")

// ErrImageNotFound indicates the image source has nothing at the given path.
var ErrImageNotFound = errors.New("image not found")
