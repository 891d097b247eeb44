package domain

import (
	"encoding/json"
	"fmt"
)

// Role tags the kind of authenticated principal.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Principal is the authenticated identity. It is implemented only by Admin and User.
type Principal interface {
	Role() Role
	PrincipalID() string
	DisplayName() string
	isPrincipal()
}

// Admin authors quizzes.
type Admin struct {
	ID      string   `json:"adminId"`
	Name    string   `json:"adminName"`
	Email   string   `json:"adminEmail"`
	QuizIDs []string `json:"quizIds"`
	Token   string   `json:"token,omitempty"`
}

func (Admin) Role() Role { return RoleAdmin }
func (a Admin) PrincipalID() string { return a.ID }
func (a Admin) DisplayName() string { return a.Name }
func (Admin) isPrincipal() {}

// User takes quizzes.
type User struct {
	ID      string   `json:"userId"`
	Name    string   `json:"userName"`
	Email   string   `json:"userEmail"`
	QuizIDs []string `json:"quizIds"`
	Token   string   `json:"token,omitempty"`
}

func (User) Role() Role { return RoleUser }
func (u User) PrincipalID() string { return u.ID }
func (u User) DisplayName() string { return u.Name }
func (User) isPrincipal() {}

// EncodePrincipal renders the persisted record: one JSON object tagged by role.
func EncodePrincipal(p Principal) ([]byte, error) {
	switch v := p.(type) {
	case Admin:
		return json.Marshal(struct {
			Role Role `json:"role"`
			Admin
		}{RoleAdmin, v})
	case User:
		return json.Marshal(struct {
			Role Role `json:"role"`
			User
		}{RoleUser, v})
	default:
		return nil, fmt.Errorf("encode principal: unsupported type %T", p)
	}
}

// DecodePrincipal parses a record written by EncodePrincipal.
func DecodePrincipal(raw []byte) (Principal, error) {
	var tag struct {
		Role Role `json:"role"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPrincipal, err)
	}
	switch tag.Role {
	case RoleAdmin:
		var a Admin
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptPrincipal, err)
		}
		return a, nil
	case RoleUser:
		var u User
		if err := json.Unmarshal(raw, &u); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptPrincipal, err)
		}
		return u, nil
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrCorruptPrincipal, tag.Role)
	}
}
