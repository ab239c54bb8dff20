package job

import "github.com/shop24h/shop24h/internal/errorutil"

var (
	ErrNotFound          = errorutil.New("job not found")
	ErrMissingField      = errorutil.New("missing required field")
	ErrInvalidRecurrence = errorutil.New("invalid repeat interval")
)
