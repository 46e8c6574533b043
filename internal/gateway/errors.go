package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies a gateway failure for callers.
type Kind int

const (
	// KindAuth is a rejected login (bad credentials or unreachable auth endpoint).
	KindAuth Kind = iota + 1
	// KindUnauthenticated is a 401 on an authenticated call; the session has
	// already been invalidated by the time the caller sees it.
	KindUnauthenticated
	// KindForbidden is a 403, the role was insufficient.
	KindForbidden
	// KindNotFound is a 404.
	KindNotFound
	// KindValidation is any other 4xx, e.g. insufficient stock at commit.
	KindValidation
	// KindServer is a 5xx.
	KindServer
	// KindNetwork means no response arrived at all.
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not found"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	}
	return "unknown"
}

// Error is the typed failure surfaced by every gateway operation. Message
// carries the server's own wording when it sent one.
type Error struct {
	Kind    Kind
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// IsKind reports whether err is a gateway error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Kind == kind
}
