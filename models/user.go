package models

import (
	"fileshare/db"
)

// User is the minimal directory record. The main application owns the full
// user schema; the upload pipeline only needs to know whether a subject is
// still permitted to connect.
type User struct {
	ID        string `gorm:"primaryKey;type:varchar(64)"`
	Name      string `gorm:"type:varchar(100)"`
	Active    bool   `gorm:"not null;default:true"`
	CreatedAt int64
}

// UserDirectory answers the "is this subject still permitted" check that the
// connection handshake performs after token verification.
type UserDirectory interface {
	IsActive(userID string) (bool, error)
}

// DBDirectory looks users up in the shared relational database.
type DBDirectory struct{}

func (DBDirectory) IsActive(userID string) (bool, error) {
	var user User
	result := db.Instance.Select("id", "active").Where("id = ?", userID).Limit(1).Find(&user)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	return user.Active, nil
}

// AllowAllDirectory admits every verified subject. Used when no database is
// configured, e.g. local development.
type AllowAllDirectory struct{}

func (AllowAllDirectory) IsActive(string) (bool, error) {
	return true, nil
}

func Init() {
	if db.Instance == nil {
		return
	}
	if err := db.Instance.AutoMigrate(&User{}); err != nil {
		panic(err)
	}
}
