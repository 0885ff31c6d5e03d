package service

import (
	"context"
	"errors"
	"fmt"

	"forumchat/internal/domain"
	"forumchat/internal/security"
)

// AuthService handles registration and credential checks. Session cookies
// are managed by the HTTP layer.
type AuthService struct {
	users domain.UserRepository
	hash  *security.PasswordHasher
}

func NewAuthService(users domain.UserRepository, hash *security.PasswordHasher) *AuthService {
	return &AuthService{users: users, hash: hash}
}

type RegisterInput struct {
	Email       string
	Name        string
	Role        domain.Role
	CompanyName string
	Password    string
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if in.Email == "" || in.Password == "" {
		return nil, errors.New("email and password are required")
	}
	if in.Role != domain.RoleCandidate && in.Role != domain.RoleRecruiter {
		return nil, errors.New("role must be candidate or recruiter")
	}
	if in.Role == domain.RoleRecruiter && in.CompanyName == "" {
		return nil, errors.New("recruiters must have a company name")
	}

	if existing, err := s.users.GetByEmail(ctx, in.Email); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	} else if existing != nil {
		return nil, errors.New("email already registered")
	}

	hashed, err := s.hash.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:          in.Email,
		Name:           in.Name,
		Role:           in.Role,
		CompanyName:    in.CompanyName,
		HashedPassword: hashed,
		IsActive:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies the credentials and returns the account.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, errors.New("incorrect email or password")
	}
	if err := s.hash.Verify(password, user.HashedPassword); err != nil {
		return nil, errors.New("incorrect email or password")
	}
	return user, nil
}
