package launchcontent

import "errors"

// Sentinel errors for the launch content service layer.
var (
	ErrUnknownOp = errors.New("unknown outbox operation")
)
