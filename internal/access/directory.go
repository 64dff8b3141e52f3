package access

import (
	"context"

	"gorm.io/gorm"

	"github.com/openpaas/groupd/internal/server/data"
	"github.com/openpaas/groupd/internal/server/members"
	"github.com/openpaas/groupd/internal/server/models"
	"github.com/openpaas/groupd/uid"
)

// directory adapts the users table to the resolver's Directory contract.
type directory struct {
	db *gorm.DB
}

func newDirectory(db *gorm.DB) members.Directory {
	return directory{db: db}
}

func (d directory) FindUserByID(ctx context.Context, id uid.ID) (*models.User, error) {
	return data.GetUser(d.db.WithContext(ctx), data.ByID(id))
}

func (d directory) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return data.GetUser(d.db.WithContext(ctx), data.ByEmail(models.NormalizeEmail(email)))
}
