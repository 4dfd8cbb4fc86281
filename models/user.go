package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser         Role = "user"
	RoleLimitedAdmin Role = "limited_admin"
	RoleSuperAdmin   Role = "super_admin"
)

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string `gorm:"unique;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Name         string `gorm:"not null" json:"name"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
	Role         Role   `gorm:"type:VARCHAR(20);default:'user'" json:"role"`
	// ProductLimit caps how many products a limited admin may create.
	// Zero means unlimited.
	ProductLimit int       `json:"product_limit"`
	Orders       []Order   `gorm:"foreignKey:UserID" json:"orders,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

func (u *User) VerifyPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleLimitedAdmin || u.Role == RoleSuperAdmin
}

func (u *User) IsSuperAdmin() bool {
	return u.Role == RoleSuperAdmin
}

// CanAddProduct reports whether the user may create one more product.
func (u *User) CanAddProduct(db *gorm.DB) (bool, error) {
	if u.Role == RoleSuperAdmin {
		return true, nil
	}
	if u.Role != RoleLimitedAdmin {
		return false, nil
	}
	if u.ProductLimit <= 0 {
		return true, nil
	}
	var count int64
	if err := db.Model(&Product{}).Where("created_by = ?", u.ID).Count(&count).Error; err != nil {
		return false, err
	}
	return count < int64(u.ProductLimit), nil
}
