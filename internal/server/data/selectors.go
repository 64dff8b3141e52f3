package data

import (
	"gorm.io/gorm"

	"github.com/openpaas/groupd/uid"
)

type SelectorFunc func(db *gorm.DB) *gorm.DB

func ByID(id uid.ID) SelectorFunc {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("id = ?", id)
	}
}

func ByName(name string) SelectorFunc {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("name = ?", name)
	}
}

func ByEmail(email string) SelectorFunc {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("email = ?", email)
	}
}

func ByGroupID(groupID uid.ID) SelectorFunc {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("group_id = ?", groupID)
	}
}

func ByUserID(userID uid.ID) SelectorFunc {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	}
}

func ByKeyID(keyID string) SelectorFunc {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("key_id = ?", keyID)
	}
}

func ByPagination(p Pagination) SelectorFunc {
	return func(db *gorm.DB) *gorm.DB {
		if p.Limit == 0 && p.Offset == 0 {
			return db
		}
		db = db.Offset(p.Offset)
		if p.Limit > 0 {
			db = db.Limit(p.Limit)
		}
		return db
	}
}
