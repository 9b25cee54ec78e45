package service

// AuthService is the business logic for accounts and credentials:
//
//	UserHandler / AuthHandler (HTTP) → AuthService → UserRepository, ProfileRepository
//	                                              ↘ TokenService (JWT), PasswordService (bcrypt)
//
// Two ways in:
//   - email + password (Register, Login)
//   - GitHub sign-in (LoginOrRegisterGitHub), available when GitHub is configured
//
// Both end with a signed token whose subject is the internal user id.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/storyline/internal/apperror"
	"github.com/sakif/storyline/internal/auth"
	"github.com/sakif/storyline/internal/events"
	"github.com/sakif/storyline/internal/model"
	"github.com/sakif/storyline/internal/repository"
)

const (
	MinPasswordLength = 6

	msgNameRequired     = "Name is required"
	msgEmailInvalid     = "Please include a valid email"
	msgPasswordShort    = "Please enter a password with 6 or more characters"
	msgPasswordLong     = "Password must be at most 72 bytes"
	msgPasswordRequired = "Password is required"
	msgAvatarInvalid    = "Avatar must be a valid http(s) URL"
)

// AuthService handles registration, login and the account itself.
type AuthService struct {
	base
	tokens    *auth.TokenService
	passwords *auth.PasswordService
}

func NewAuthService(d Deps) *AuthService {
	passwords := d.Passwords
	if passwords == nil {
		passwords = auth.NewPasswordService(auth.DefaultPasswordCost)
	}
	return &AuthService{base: newBase(d), tokens: d.Tokens, passwords: passwords}
}

// AuthResult bundles the user and the token issued for it.
type AuthResult struct {
	User  *model.User
	Token string
}

// RegisterInput is the body of POST /api/users.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates a user and their empty profile in one transaction.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	name := s.clean.Text(in.Name)
	email := strings.TrimSpace(in.Email)

	var v apperror.ValidationErrors
	if name == "" {
		v.Add("name", msgNameRequired)
	}
	if !validEmail(email) {
		v.Add("email", msgEmailInvalid)
	}
	checkPassword(&v, in.Password)
	if err := v.Err(); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{Name: name, Email: email, PasswordHash: hash}
	if err := s.createAccount(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))
	s.publish(ctx, events.New(events.UserRegistered, user.ID, user.ID, map[string]string{"method": "password"}))

	return s.issue(user)
}

// Login checks credentials. Any mismatch, including an unknown email, is the
// same InvalidCredentials error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)

	var v apperror.ValidationErrors
	if !validEmail(email) {
		v.Add("email", msgEmailInvalid)
	}
	if password == "" {
		v.Add("password", msgPasswordRequired)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: loading user: %w", err)
	}
	// Accounts created through GitHub have no password.
	if user.PasswordHash == "" {
		return nil, apperror.InvalidCredentials()
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	return s.issue(user)
}

// CurrentUser returns the account behind a validated token.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	return s.requireUser(ctx, userID)
}

// UserPatch is a partial update; nil fields are left unchanged. An empty
// Avatar removes the avatar.
type UserPatch struct {
	Name     *string
	Email    *string
	Password *string
	Avatar   *string
}

func (s *AuthService) UpdateUser(ctx context.Context, userID string, patch UserPatch) (*model.User, error) {
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var v apperror.ValidationErrors
	if patch.Name != nil {
		if user.Name = s.clean.Text(*patch.Name); user.Name == "" {
			v.Add("name", msgNameRequired)
		}
	}
	if patch.Email != nil {
		if user.Email = strings.TrimSpace(*patch.Email); !validEmail(user.Email) {
			v.Add("email", msgEmailInvalid)
		}
	}
	if patch.Password != nil {
		checkPassword(&v, *patch.Password)
	}
	if patch.Avatar != nil {
		switch avatar := strings.TrimSpace(*patch.Avatar); {
		case avatar == "":
			user.Avatar = nil
		case validURL(avatar):
			user.Avatar = &avatar
		default:
			v.Add("avatar", msgAvatarInvalid)
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	if patch.Password != nil {
		if user.PasswordHash, err = s.passwords.Hash(*patch.Password); err != nil {
			return nil, fmt.Errorf("service/auth: %w", err)
		}
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: updating user %s: %w", user.ID, err)
	}
	return user, nil
}

// LoginOrRegisterGitHub signs in a GitHub identity. The account is found by
// GitHub id, then by email (linking it), and created otherwise.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user, err := s.store.GetUserByGitHubID(ctx, gh.ID)
	if err == nil {
		return s.issue(user)
	}
	if !apperror.IsNotFound(err) {
		return nil, fmt.Errorf("service/auth: loading GitHub user %d: %w", gh.ID, err)
	}

	email := strings.TrimSpace(gh.Email)
	if email == "" {
		email = fmt.Sprintf("%d+%s@users.noreply.github.com", gh.ID, gh.Login)
	}

	user, err = s.store.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		user.GitHubID = gh.ID
		if user.Avatar == nil && gh.AvatarURL != "" {
			avatar := gh.AvatarURL
			user.Avatar = &avatar
		}
		if err := s.store.UpdateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: linking GitHub account: %w", err)
		}
		s.logger.Info("GitHub account linked", slog.String("userID", user.ID), slog.Int64("githubID", gh.ID))

	case apperror.IsNotFound(err):
		user = &model.User{Name: s.clean.Text(gh.DisplayName()), Email: email, GitHubID: gh.ID}
		if gh.AvatarURL != "" {
			avatar := gh.AvatarURL
			user.Avatar = &avatar
		}
		if err := s.createAccount(ctx, user); err != nil {
			return nil, err
		}
		s.logger.Info("user registered via GitHub", slog.String("userID", user.ID), slog.Int64("githubID", gh.ID))
		s.publish(ctx, events.New(events.UserRegistered, user.ID, user.ID, map[string]string{"method": "github"}))

	default:
		return nil, fmt.Errorf("service/auth: loading user by email: %w", err)
	}

	return s.issue(user)
}

func (s *AuthService) createAccount(ctx context.Context, user *model.User) error {
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		return tx.CreateProfile(ctx, model.NewProfile(user.ID))
	})
	if err != nil {
		return fmt.Errorf("service/auth: creating account: %w", err)
	}
	return nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// validEmail accepts a bare address such as "a@x.com" (no display name).
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email, "@")
}

func checkPassword(v *apperror.ValidationErrors, password string) {
	switch {
	case len(password) < MinPasswordLength:
		v.Add("password", msgPasswordShort)
	case len(password) > auth.MaxPasswordBytes:
		v.Add("password", msgPasswordLong)
	}
}
