package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"quiz-portal-client/internal/backend"
	"quiz-portal-client/internal/domain"
)

// PrincipalKey is the durable storage key of the persisted principal.
const PrincipalKey = "user"

// Storage is a small durable key-value store. Get returns domain.ErrKeyNotFound for a missing key.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// AuthAPI is the backend surface used by login and registration.
type AuthAPI interface {
	Login(ctx context.Context, role domain.Role, email, password string) (domain.LoginReply, error)
	Register(ctx context.Context, role domain.Role, name, email, password string) (domain.RegisterReply, error)
}

// AuthResult reports a login or registration attempt.
type AuthResult struct {
	Success bool
	Message string
}

// PrincipalPatch replaces the non-nil fields of the current principal.
type PrincipalPatch struct {
	Name    *string
	Email   *string
	QuizIDs []string
	Token   *string
}

const invalidCredentials = "Invalid credentials"

var credentialFailures = []string{
	"User does not exist",
	"Admin does not exist",
	"Invalid Password",
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
	Role     string `validate:"required,oneof=admin user"`
}

type registerForm struct {
	Name     string `validate:"required,min=2"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
	Role     string `validate:"required,oneof=admin user"`
}

// IdentityStore holds the authenticated principal and keeps it in durable storage.
type IdentityStore struct {
	api      AuthAPI
	storage  Storage
	validate *validator.Validate

	mu      sync.RWMutex
	current domain.Principal
}

func NewIdentityStore(api AuthAPI, storage Storage) *IdentityStore {
	return &IdentityStore{
		api:      api,
		storage:  storage,
		validate: validator.New(),
	}
}

// Hydrate loads the persisted principal. A corrupt record is deleted and treated as logged out.
func (s *IdentityStore) Hydrate(ctx context.Context) error {
	raw, err := s.storage.Get(ctx, PrincipalKey)
	if errors.Is(err, domain.ErrKeyNotFound) {
		s.setCurrent(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load principal: %w", err)
	}
	p, err := domain.DecodePrincipal(raw)
	if err != nil {
		log.Printf("discarding stored principal: %v", err)
		s.setCurrent(nil)
		if delErr := s.storage.Delete(ctx, PrincipalKey); delErr != nil {
			return fmt.Errorf("delete corrupt principal: %w", delErr)
		}
		return nil
	}
	s.setCurrent(p)
	return nil
}

// Login authenticates against the backend and persists the principal on success.
// Failures are reported in the result, never as an error.
func (s *IdentityStore) Login(ctx context.Context, email, password string, role domain.Role) AuthResult {
	form := loginForm{Email: strings.TrimSpace(email), Password: password, Role: string(role)}
	if err := s.validate.Struct(form); err != nil {
		return AuthResult{Message: validationMessage(err)}
	}

	reply, err := s.api.Login(ctx, role, form.Email, password)
	if err != nil {
		return AuthResult{Message: failureMessage(err)}
	}

	var p domain.Principal
	switch role {
	case domain.RoleAdmin:
		if reply.AdminID == "" {
			return AuthResult{Message: loginReplyMessage(reply.Message)}
		}
		p = domain.Admin{
			ID:      reply.AdminID,
			Name:    reply.AdminName,
			Email:   reply.AdminEmail,
			QuizIDs: reply.QuizIDs,
			Token:   reply.Token,
		}
	default:
		if reply.UserInfo == nil || reply.UserInfo.ID == "" {
			return AuthResult{Message: loginReplyMessage(reply.Message)}
		}
		p = domain.User{
			ID:      reply.UserInfo.ID,
			Name:    reply.UserInfo.Name,
			Email:   reply.UserInfo.Email,
			QuizIDs: reply.UserInfo.AttemptedQuizzes,
			Token:   reply.Token,
		}
	}

	if err := s.persist(ctx, p); err != nil {
		log.Printf("persist principal: %v", err)
		return AuthResult{Message: "Could not save login, please try again"}
	}
	s.setCurrent(p)
	msg := reply.Message
	if msg == "" {
		msg = "Login successful"
	}
	return AuthResult{Success: true, Message: msg}
}

// Register creates an account. The backend's error text is returned verbatim.
func (s *IdentityStore) Register(ctx context.Context, name, email, password string, role domain.Role) AuthResult {
	form := registerForm{
		Name:     strings.TrimSpace(name),
		Email:    strings.TrimSpace(email),
		Password: password,
		Role:     string(role),
	}
	if err := s.validate.Struct(form); err != nil {
		return AuthResult{Message: validationMessage(err)}
	}

	reply, err := s.api.Register(ctx, role, form.Name, form.Email, password)
	if err != nil {
		return AuthResult{Message: failureMessage(err)}
	}
	if reply.Error != "" {
		return AuthResult{Message: reply.Error}
	}
	return AuthResult{Success: true, Message: "Registration successful"}
}

// Logout clears the principal from memory and storage.
func (s *IdentityStore) Logout(ctx context.Context) error {
	s.setCurrent(nil)
	if err := s.storage.Delete(ctx, PrincipalKey); err != nil && !errors.Is(err, domain.ErrKeyNotFound) {
		return fmt.Errorf("delete principal: %w", err)
	}
	return nil
}

// UpdateUser merges patch into the current principal and persists the result.
func (s *IdentityStore) UpdateUser(ctx context.Context, patch PrincipalPatch) (domain.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, domain.ErrNotLoggedIn
	}

	var next domain.Principal
	switch p := s.current.(type) {
	case domain.Admin:
		applyPatch(&p.Name, &p.Email, &p.QuizIDs, &p.Token, patch)
		next = p
	case domain.User:
		applyPatch(&p.Name, &p.Email, &p.QuizIDs, &p.Token, patch)
		next = p
	}

	if err := s.persist(ctx, next); err != nil {
		return nil, err
	}
	s.current = next
	return next, nil
}

func applyPatch(name, email *string, quizIDs *[]string, token *string, patch PrincipalPatch) {
	if patch.Name != nil {
		*name = *patch.Name
	}
	if patch.Email != nil {
		*email = *patch.Email
	}
	if patch.QuizIDs != nil {
		*quizIDs = append([]string(nil), patch.QuizIDs...)
	}
	if patch.Token != nil {
		*token = *patch.Token
	}
}

// Current returns the authenticated principal, or nil.
func (s *IdentityStore) Current() domain.Principal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Token returns the bearer token of the current principal.
func (s *IdentityStore) Token() string {
	switch p := s.Current().(type) {
	case domain.Admin:
		return p.Token
	case domain.User:
		return p.Token
	}
	return ""
}

func (s *IdentityStore) RequireAdmin() (domain.Admin, error) {
	switch p := s.Current().(type) {
	case domain.Admin:
		return p, nil
	case nil:
		return domain.Admin{}, domain.ErrNotLoggedIn
	default:
		return domain.Admin{}, domain.ErrForbidden
	}
}

func (s *IdentityStore) RequireUser() (domain.User, error) {
	switch p := s.Current().(type) {
	case domain.User:
		return p, nil
	case nil:
		return domain.User{}, domain.ErrNotLoggedIn
	default:
		return domain.User{}, domain.ErrForbidden
	}
}

func (s *IdentityStore) persist(ctx context.Context, p domain.Principal) error {
	raw, err := domain.EncodePrincipal(p)
	if err != nil {
		return err
	}
	if err := s.storage.Set(ctx, PrincipalKey, raw); err != nil {
		return fmt.Errorf("store principal: %w", err)
	}
	return nil
}

func (s *IdentityStore) setCurrent(p domain.Principal) {
	s.mu.Lock()
	s.current = p
	s.mu.Unlock()
}

func loginReplyMessage(msg string) string {
	for _, known := range credentialFailures {
		if msg == known {
			return invalidCredentials
		}
	}
	if msg == "" {
		return "Login failed"
	}
	return msg
}

func failureMessage(err error) string {
	if errors.Is(err, backend.ErrServiceUnavailable) {
		return "Service unavailable, please try again later"
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		return loginReplyMessage(apiErr.Message)
	}
	return err.Error()
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Field() {
	case "Email":
		if fe.Tag() == "required" {
			return "Email is required"
		}
		return "Please enter a valid email address"
	case "Password":
		if fe.Tag() == "required" {
			return "Password is required"
		}
		return "Password must be at least 6 characters"
	case "Name":
		if fe.Tag() == "required" {
			return "Name is required"
		}
		return "Name must be at least 2 characters"
	case "Role":
		return "Please select a role"
	}
	return err.Error()
}
