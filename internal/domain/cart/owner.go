// internal/domain/cart/owner.go
package cart

import "fmt"

// OwnerKind says who a cart belongs to
type OwnerKind uint8

const (
	OwnerNone OwnerKind = iota
	OwnerUser
	OwnerSession
)

// Owner identifies the cart a request operates on: an authenticated user,
// a guest session token, or nobody (a transient, never persisted cart).
type Owner struct {
	kind         OwnerKind
	userID       uint
	sessionToken string
}

// UserOwner is the owner for an authenticated user
func UserOwner(userID uint) Owner {
	if userID == 0 {
		return NoOwner()
	}
	return Owner{kind: OwnerUser, userID: userID}
}

// SessionOwner is the owner for a guest session token
func SessionOwner(token string) Owner {
	if token == "" {
		return NoOwner()
	}
	return Owner{kind: OwnerSession, sessionToken: token}
}

// NoOwner is the owner of the transient cart
func NoOwner() Owner {
	return Owner{kind: OwnerNone}
}

// OwnerFor picks the cart owner for a request. The user wins over the session.
func OwnerFor(userID uint, authenticated bool, sessionToken string) Owner {
	if authenticated && userID != 0 {
		return UserOwner(userID)
	}
	return SessionOwner(sessionToken)
}

func (o Owner) Kind() OwnerKind { return o.kind }

func (o Owner) UserID() (uint, bool) {
	return o.userID, o.kind == OwnerUser
}

func (o Owner) SessionToken() (string, bool) {
	return o.sessionToken, o.kind == OwnerSession
}

func (o Owner) String() string {
	switch o.kind {
	case OwnerUser:
		return fmt.Sprintf("user:%d", o.userID)
	case OwnerSession:
		return "session:" + o.sessionToken
	default:
		return "none"
	}
}
