package batchio

import "errors"

// Sentinel kinds for batch I/O errors.
var (
	ErrRead              = errors.New("read batch failed")
	ErrWrite             = errors.New("write result failed")
	ErrDecode            = errors.New("decode events failed")
	ErrUnsupportedFormat = errors.New("unsupported output format")
)
