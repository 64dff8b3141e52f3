package data

import (
	"gorm.io/gorm"

	"github.com/openpaas/groupd/internal/server/models"
)

func CreateUser(db *gorm.DB, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	return add(db, user)
}

// GetUser is the directory lookup. Use ByID or ByEmail selectors; absence is
// reported as internal.ErrNotFound.
func GetUser(db *gorm.DB, selectors ...SelectorFunc) (*models.User, error) {
	return get[models.User](db, selectors...)
}

func ListUsers(db *gorm.DB, selectors ...SelectorFunc) ([]models.User, error) {
	return list[models.User](db, selectors...)
}
