package data

import (
	"gorm.io/gorm"

	"github.com/openpaas/groupd/internal/server/models"
	"github.com/openpaas/groupd/uid"
)

func CreateDomain(db *gorm.DB, domain *models.Domain) error {
	return add(db, domain)
}

func GetDomain(db *gorm.DB, selectors ...SelectorFunc) (*models.Domain, error) {
	return get[models.Domain](db, selectors...)
}

func ListDomains(db *gorm.DB, selectors ...SelectorFunc) ([]models.Domain, error) {
	return list[models.Domain](db, selectors...)
}

func AddDomainMember(db *gorm.DB, dm *models.DomainMember) error {
	return add(db, dm)
}

// ListDomainMemberships returns the domain memberships of one user,
// including their admin standing per domain.
func ListDomainMemberships(db *gorm.DB, userID uid.ID) ([]models.DomainMember, error) {
	return list[models.DomainMember](db, ByUserID(userID))
}
