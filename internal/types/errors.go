package types

import "errors"

var (
	// ErrConfiguration is fatal and aborts the run before any target is processed
	ErrConfiguration = errors.New("configuration error")
	// ErrNavigationTimeout ends a single target with zero notifications
	ErrNavigationTimeout = errors.New("navigation timeout")
	// ErrElementWaitTimeout ends a single target with zero notifications
	ErrElementWaitTimeout = errors.New("size block wait timeout")
	// ErrDelivery is reported per notification and never aborts a cycle
	ErrDelivery = errors.New("delivery failed")
)
