package automation

import "errors"

// Sentinel errors for the failure classes callers are expected to
// distinguish. Everything below the gateway propagates these upward; only
// the gateway converts them into FillResult values.
var (
	// ErrUnknownSystem means the caller supplied a target-system identifier
	// with no matching descriptor. Fails immediately, no side effects.
	ErrUnknownSystem = errors.New("unknown target system")

	// ErrNoCredential means a login was required but no credential is stored
	// for the identifier. Raised before any remote write.
	ErrNoCredential = errors.New("no stored credential")

	// ErrLoginRejected means the login form was submitted and a navigation
	// completed, but the page still classifies as a login page.
	ErrLoginRejected = errors.New("login rejected")
)
