package models

import "time"

// AuthUser maps to the `auth_users` table. It is the login identity a
// profile hangs off; both rows share the same ID.
type AuthUser struct {
	ID             string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	Email          string    `gorm:"column:email;size:255;uniqueIndex" json:"email"`
	EmailConfirmed bool      `gorm:"column:email_confirmed" json:"email_confirmed"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
}

func (AuthUser) TableName() string {
	return "auth_users"
}

// Profile roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Profile maps to the `profiles` table (the customer identity).
type Profile struct {
	ID        string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	Email     string    `gorm:"column:email;size:255;uniqueIndex" json:"email"`
	FullName  string    `gorm:"column:full_name;size:100" json:"full_name"`
	Phone     string    `gorm:"column:phone;size:20" json:"phone"`
	Role      string    `gorm:"column:role;size:20" json:"role"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}
