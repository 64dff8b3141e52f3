package models

import (
	"strings"

	"github.com/openpaas/groupd/api"
	"github.com/openpaas/groupd/uid"
)

const (
	// ObjectTypeUser identifies a member that references a directory user
	// by id. The referenced user is not owned by the group.
	ObjectTypeUser = "user"
	// ObjectTypeEmail identifies a bare contact address with no directory
	// account behind it. It exists only inside the group.
	ObjectTypeEmail = "email"
)

// Member is the canonical {objectType, id} tuple identifying one group
// member. For ObjectTypeUser the ID is the base58 form of the user's uid;
// for ObjectTypeEmail it is the normalized (lowercased) address.
type Member struct {
	ObjectType string
	ID         string
}

func UserMember(id uid.ID) Member {
	return Member{ObjectType: ObjectTypeUser, ID: id.String()}
}

func EmailMember(email string) Member {
	return Member{ObjectType: ObjectTypeEmail, ID: NormalizeEmail(email)}
}

// NormalizeEmail returns the form of an address used for uniqueness checks
// and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Key returns the uniqueness key of the tuple within a group's membership.
func (m Member) Key() string {
	id := m.ID
	if m.ObjectType == ObjectTypeEmail {
		id = NormalizeEmail(id)
	}
	return m.ObjectType + ":" + id
}

func (m Member) ToAPI() api.Member {
	return api.Member{ObjectType: m.ObjectType, ID: m.ID}
}

// GroupMember is one stored membership entry. Entries are exclusively owned
// by their group: created on group creation or an add, destroyed on remove
// or group deletion.
type GroupMember struct {
	Model

	GroupID    uid.ID `gorm:"index"`
	ObjectType string
	MemberID   string
}

func (gm *GroupMember) Tuple() Member {
	return Member{ObjectType: gm.ObjectType, ID: gm.MemberID}
}

func (gm *GroupMember) ToAPI() api.MembershipEntry {
	return api.MembershipEntry{Member: gm.Tuple().ToAPI()}
}
