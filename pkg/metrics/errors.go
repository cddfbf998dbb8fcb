package metrics

import (
	"errors"
)

// Sentinel kinds for metrics errors.
var (
	ErrWriteMetrics = errors.New("metrics write failed")
)
