package application

import "errors"

var ErrAlreadyRunning = errors.New("tracker already running")
var ErrNotRunning = errors.New("tracker not running")
