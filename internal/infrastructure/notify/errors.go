package notify

import "errors"

// ErrMisconfigured is returned by a notifier missing credentials or recipients.
var ErrMisconfigured = errors.New("notifier misconfigured")
