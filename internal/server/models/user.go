package models

// User is a directory identity. Groups reference users by id only; a user
// record is never owned by a group.
type User struct {
	Model

	Name  string
	Email string `gorm:"uniqueIndex:idx_users_email,where:deleted_at is NULL"`
}
