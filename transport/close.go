package transport

import (
	"errors"
	"fmt"
)

// Close codes used by the session protocol.
const (
	CloseNormal    = 1000
	CloseGoingAway = 1001
	CloseNoStatus  = 1005
	CloseAbnormal  = 1006
)

// CloseError reports the code and reason a connection was closed with.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("connection closed: code %d", e.Code)
	}
	return fmt.Sprintf("connection closed: code %d (%s)", e.Code, e.Reason)
}

// IsNormal reports whether code marks a clean shutdown. Only 1000 and 1005
// qualify; every other code, 1001 included, is abnormal.
func IsNormal(code int) bool {
	return code == CloseNormal || code == CloseNoStatus
}

// ClassifyClose maps the error that ended a connection to a close code and
// reason. Errors that carry no close frame, such as a dropped TCP stream,
// map to 1006.
func ClassifyClose(err error) (code int, reason string, normal bool) {
	var ce *CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Reason, IsNormal(ce.Code)
	}
	if err == nil {
		return CloseNoStatus, "", true
	}
	return CloseAbnormal, err.Error(), false
}
