package service

import "errors"

// ErrNotStarted reports an operation against a service that has not
// been started yet.
var ErrNotStarted = errors.New("service not started")
