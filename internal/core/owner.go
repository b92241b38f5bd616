package core

import "strconv"

type ownerKind uint8

const (
	ownerShared ownerKind = iota
	ownerUser
)

// Owner says who a Category or Source belongs to: one user, or every user
// (a shared default row). The zero value is Shared.
type Owner struct {
	kind   ownerKind
	userID int64
}

func SharedOwner() Owner {
	return Owner{kind: ownerShared}
}

func OwnedBy(userID int64) Owner {
	return Owner{kind: ownerUser, userID: userID}
}

func (o Owner) IsShared() bool {
	return o.kind == ownerShared
}

// UserID returns the owning user, or false for shared rows.
func (o Owner) UserID() (int64, bool) {
	if o.kind != ownerUser {
		return 0, false
	}
	return o.userID, true
}

// VisibleTo reports whether userID may see and reference the row.
func (o Owner) VisibleTo(userID int64) bool {
	return o.kind == ownerShared || o.userID == userID
}

// MutableBy reports whether userID may change the row. Shared rows are
// read-only for everyone.
func (o Owner) MutableBy(userID int64) bool {
	return o.kind == ownerUser && o.userID == userID
}

func (o Owner) String() string {
	if o.kind == ownerShared {
		return "shared"
	}
	return "user:" + strconv.FormatInt(o.userID, 10)
}
