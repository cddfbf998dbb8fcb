package dedupe

import "github.com/okian/ltvrank/pkg/logger"

// Option applies a configuration option to the deduper.
type Option func(*latestDeduper)

// WithSizeHint presizes the key index. Values <= 0 size it to the batch.
func WithSizeHint(n int) Option {
	return func(d *latestDeduper) {
		d.sizeHint = n
	}
}

// WithLogger sets the logger used for the per-batch summary.
func WithLogger(l logger.Logger) Option {
	return func(d *latestDeduper) {
		if l != nil {
			d.logger = l
		}
	}
}
