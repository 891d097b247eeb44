package backend

import (
	"context"
	"fmt"

	"quiz-portal-client/internal/domain"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login calls POST /login-{role}.
func (c *Client) Login(ctx context.Context, role domain.Role, email, password string) (domain.LoginReply, error) {
	path, err := rolePath("/login-", role)
	if err != nil {
		return domain.LoginReply{}, err
	}
	var reply domain.LoginReply
	if err := c.postJSON(ctx, path, credentialsRequest{Email: email, Password: password}, &reply); err != nil {
		return domain.LoginReply{}, err
	}
	return reply, nil
}

// Register calls POST /register-{role}.
func (c *Client) Register(ctx context.Context, role domain.Role, name, email, password string) (domain.RegisterReply, error) {
	path, err := rolePath("/register-", role)
	if err != nil {
		return domain.RegisterReply{}, err
	}
	var reply domain.RegisterReply
	if err := c.postJSON(ctx, path, registerRequest{Name: name, Email: email, Password: password}, &reply); err != nil {
		return domain.RegisterReply{}, err
	}
	return reply, nil
}

func rolePath(prefix string, role domain.Role) (string, error) {
	switch role {
	case domain.RoleAdmin, domain.RoleUser:
		return prefix + string(role), nil
	default:
		return "", fmt.Errorf("unknown role %q", role)
	}
}
