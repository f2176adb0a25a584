package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"stratus/internal/auth"
	"stratus/internal/database"
)

// UserService handles registration and login.
type UserService struct {
	users  UserRepo
	tokens *auth.Manager
}

// NewUserService creates a new UserService.
func NewUserService(users UserRepo, tokens *auth.Manager) *UserService {
	return &UserService{users: users, tokens: tokens}
}

// Register creates an account and signs the new user in. The password is
// stored as a bcrypt hash.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*database.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	u := &database.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, u); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, "", ErrUsernameTaken
		}
		return nil, "", err
	}

	token, err := s.tokens.Issue(u.ID, u.Username)
	if err != nil {
		return nil, "", err
	}

	slog.Info("user registered", "user_id", u.ID, "username", u.Username)
	return u, token, nil
}

// Login verifies credentials and issues a signed token. Not-found and
// wrong-password both map to the same error so the response doesn't reveal
// which usernames exist.
func (s *UserService) Login(ctx context.Context, username, password string) (*database.User, string, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !u.IsActive {
		return nil, "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID, u.Username)
	if err != nil {
		return nil, "", err
	}

	if err := s.users.RecordLogin(ctx, u.ID, time.Now().UTC()); err != nil {
		slog.Warn("failed to record login", "user_id", u.ID, "error", err)
	}
	return u, token, nil
}
