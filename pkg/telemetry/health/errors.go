package health

import "errors"

// ErrCheckTimeout is reported when a check does not return within the
// check timeout.
var ErrCheckTimeout = errors.New("health check timeout")
