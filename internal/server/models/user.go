// Package models defines server-side records persisted in the database.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Role is the coarse authorization role carried in access tokens.
type Role string

const (
	RoleUser  Role = "user"
	RoleCoach Role = "coach"
	RoleAdmin Role = "admin"
)

// ParseRole accepts the lowercase wire names only.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleUser, RoleCoach, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// User is an identity record. Username and Email are each globally unique.
type User struct {
	ID            int64
	UserName      string
	Email         string
	PasswordHash  string
	Role          Role
	EmailVerified bool
	CreatedAt     time.Time
}
