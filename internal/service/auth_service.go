package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"storefront/internal/auth"
	"storefront/internal/domain"
	"storefront/internal/repository"
)

const minPasswordLen = 8

// AuthService registers users and turns credentials into tokens and tokens
// into principals.
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.Tokens
	log    *zap.Logger
}

func NewAuthService(users repository.UserRepository, tokens *auth.Tokens, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{users: users, tokens: tokens, log: log}
}

func (s *AuthService) Register(ctx context.Context, email, password string, role domain.Role) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLen)
	}
	switch role {
	case "":
		role = domain.RoleCustomer
	case domain.RoleCustomer, domain.RoleAdmin:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, role)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &domain.User{Email: email, PasswordHash: hash, Role: role}
	if err := s.users.Add(ctx, u); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, domain.ErrEmailTaken
		}
		return nil, err
	}
	s.log.Info("user registered", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// Login returns a signed access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}
	if err != nil {
		return "", err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return "", fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}
	return s.tokens.Issue(u.Principal())
}

// Authenticate resolves a bearer token to a principal of an existing user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Principal, error) {
	p, err := s.tokens.Parse(token)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: could not validate credentials", domain.ErrUnauthorized)
	}
	u, err := s.users.GetByID(ctx, p.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Principal{}, fmt.Errorf("%w: user not found", domain.ErrUnauthorized)
	}
	if err != nil {
		return domain.Principal{}, err
	}
	return u.Principal(), nil
}

func (s *AuthService) TokenTTLSeconds() int64 { return int64(s.tokens.TTL().Seconds()) }
