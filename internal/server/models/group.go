package models

import (
	"github.com/ssoroka/slice"

	"github.com/openpaas/groupd/api"
	"github.com/openpaas/groupd/uid"
)

type Group struct {
	Model

	Name      string
	Email     string `gorm:"uniqueIndex:idx_groups_email,where:deleted_at is NULL"`
	CreatedBy uid.ID

	// Domains is the non-empty set of domains the group belongs to.
	Domains []Domain `gorm:"many2many:groups_domains"`
	// Members is the ordered membership sequence, oldest entry first.
	Members []GroupMember `gorm:"foreignKey:GroupID"`
}

func (g *Group) ToAPI() *api.Group {
	return &api.Group{
		ID:        g.ID,
		Name:      g.Name,
		Email:     g.Email,
		Creator:   g.CreatedBy,
		DomainIDs: g.DomainIDs(),
		Members: slice.Map[GroupMember, api.MembershipEntry](g.Members, func(gm GroupMember) api.MembershipEntry {
			return gm.ToAPI()
		}),
		Created: g.CreatedAt,
		Updated: g.UpdatedAt,
	}
}

func (g *Group) DomainIDs() []uid.ID {
	return slice.Map[Domain, uid.ID](g.Domains, func(d Domain) uid.ID {
		return d.ID
	})
}

// MemberTuples returns the current membership as canonical tuples, in
// stored order.
func (g *Group) MemberTuples() []Member {
	return slice.Map[GroupMember, Member](g.Members, func(gm GroupMember) Member {
		return gm.Tuple()
	})
}
