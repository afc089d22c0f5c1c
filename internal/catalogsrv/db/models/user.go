package models

import (
	"time"

	"github.com/google/uuid"
)

/*
                       Table "public.users"
    Column     |           Type           | Nullable |   Default
---------------+--------------------------+----------+--------------
 user_id       | uuid                     | not null |
 username      | character varying(128)   | not null |
 email         | character varying(256)   | not null |
 password_hash | text                     | not null |
 role          | character varying(16)    | not null | 'user'
 status        | character varying(16)    | not null | 'unverified'
 api_key       | character varying(64)    |          |
 created_at    | timestamp with time zone | not null | now()
 updated_at    | timestamp with time zone | not null | now()
 last_login    | timestamp with time zone |          |
Indexes:
    "users_pkey" PRIMARY KEY, btree (user_id)
    "users_username_key" UNIQUE CONSTRAINT, btree (username)
    "users_email_key" UNIQUE CONSTRAINT, btree (email)
    "users_api_key_key" UNIQUE CONSTRAINT, btree (api_key)
*/

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	StatusUnverified = "unverified"
	StatusActive     = "active"
	StatusInactive   = "inactive"
)

type User struct {
	ID           uuid.UUID  `db:"user_id" json:"id"`
	Username     string     `db:"username" json:"username"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         string     `db:"role" json:"role"`
	Status       string     `db:"status" json:"status"`
	APIKey       string     `db:"api_key" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanUseAPI reports whether the user may authenticate to the catalog.
func (u *User) CanUseAPI() bool {
	return u.Status == StatusActive || u.IsAdmin()
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.LastLogin = cloneTime(u.LastLogin)
	return &c
}

func ValidUserStatus(s string) bool {
	switch s {
	case StatusUnverified, StatusActive, StatusInactive:
		return true
	}
	return false
}

type UserQuery struct {
	Status string
}
