package models

import (
	"github.com/openpaas/groupd/uid"
)

// Domain is a tenant boundary. Groups and users belong to one or more
// domains.
type Domain struct {
	Model

	Name string `gorm:"uniqueIndex:idx_domains_name,where:deleted_at is NULL"`
}

// DomainMember records that a user belongs to a domain. Admin grants the
// user elevated rights over all groups within that domain.
type DomainMember struct {
	Model

	DomainID uid.ID `gorm:"uniqueIndex:idx_domain_members_domain_user,where:deleted_at is NULL"`
	UserID   uid.ID `gorm:"uniqueIndex:idx_domain_members_domain_user,where:deleted_at is NULL"`
	Admin    bool
}
