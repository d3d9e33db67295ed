package capture

import "errors"

// ErrCaptureInProgress is the denial cause when a request or session already exists.
var ErrCaptureInProgress = errors.New("capture already in progress")

// ErrControllerClosed is the denial cause after Teardown.
var ErrControllerClosed = errors.New("capture controller is shut down")

// DenialKind classifies why a capture request did not produce a session.
type DenialKind int

const (
	// DenialUnsupported means the host has no capture capability.
	DenialUnsupported DenialKind = iota + 1
	// DenialPermission means the user or operating system refused access.
	DenialPermission
	// DenialOther covers every other setup failure.
	DenialOther
)

func (k DenialKind) String() string {
	switch k {
	case DenialUnsupported:
		return "unsupported"
	case DenialPermission:
		return "permission_denied"
	case DenialOther:
		return "error"
	default:
		return "unknown"
	}
}

// Denial describes a refused or failed capture request.
type Denial struct {
	Kind        DenialKind
	Description string // human-readable cause, empty for DenialPermission
	Err         error  // underlying error, nil for DenialUnsupported
}

// Outcome is the result of a capture request: exactly one of Session and
// Denial is set.
type Outcome struct {
	Session *Session
	Denial  *Denial
}

// Granted reports whether the request produced a session.
func (o Outcome) Granted() bool {
	return o.Session != nil
}
