package data

import (
	"gorm.io/gorm"

	"github.com/openpaas/groupd/internal"
	"github.com/openpaas/groupd/internal/server/models"
	"github.com/openpaas/groupd/uid"
)

// withGroupAssociations preloads the domain set and the ordered membership
// sequence of a group.
func withGroupAssociations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Domains").
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		})
}

func CreateGroup(db *gorm.DB, group *models.Group) error {
	return add(db, group)
}

func GetGroup(db *gorm.DB, selectors ...SelectorFunc) (*models.Group, error) {
	return get[models.Group](withGroupAssociations(db), selectors...)
}

func ListGroups(db *gorm.DB, p Pagination, selectors ...SelectorFunc) ([]models.Group, error) {
	selectors = append(selectors, ByPagination(p))
	return list[models.Group](withGroupAssociations(db), selectors...)
}

// SaveGroup persists changes to the group's own fields. Membership is
// mutated through ReplaceGroupMembers only.
func SaveGroup(db *gorm.DB, group *models.Group) error {
	return save(db, &models.Group{
		Model:     group.Model,
		Name:      group.Name,
		Email:     group.Email,
		CreatedBy: group.CreatedBy,
	})
}

func DeleteGroup(db *gorm.DB, id uid.ID) error {
	group, err := GetGroup(db, ByID(id))
	if err != nil {
		return err
	}

	if err := db.Unscoped().Where("group_id = ?", id).Delete(&models.GroupMember{}).Error; err != nil {
		return err
	}
	if err := db.Model(group).Association("Domains").Clear(); err != nil {
		return err
	}

	return deleteAll[models.Group](db, ByID(id))
}

// ReplaceGroupMembers atomically replaces the whole membership sequence of
// the group with tuples, preserving their order. Callers are expected to be
// inside the request transaction.
func ReplaceGroupMembers(db *gorm.DB, group *models.Group, tuples []models.Member) error {
	if err := db.Unscoped().Where("group_id = ?", group.ID).Delete(&models.GroupMember{}).Error; err != nil {
		return err
	}

	// rows are created one at a time so each gets a fresh snowflake,
	// keeping id order equal to sequence order
	for i := range tuples {
		entry := &models.GroupMember{
			GroupID:    group.ID,
			ObjectType: tuples[i].ObjectType,
			MemberID:   tuples[i].ID,
		}
		if err := add(db, entry); err != nil {
			return err
		}
	}

	return nil
}

func ListGroupMembers(db *gorm.DB, groupID uid.ID, p Pagination) ([]models.GroupMember, error) {
	return list[models.GroupMember](db, ByGroupID(groupID), ByPagination(p))
}

// BindGroupDomains sets the group's domain set. The set must never be empty.
func BindGroupDomains(db *gorm.DB, group *models.Group, domains ...models.Domain) error {
	if len(domains) == 0 {
		return internal.ErrBadRequest
	}
	return db.Model(group).Association("Domains").Replace(domains)
}
