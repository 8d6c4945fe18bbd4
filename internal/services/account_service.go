package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/storefront-labs/storefront-backend/internal/config"
	"github.com/storefront-labs/storefront-backend/internal/dto"
	"github.com/storefront-labs/storefront-backend/internal/models"
	"github.com/storefront-labs/storefront-backend/internal/store"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrNotAuthorized      = errors.New("no authorization")
	ErrInvalidRole        = errors.New("invalid role")
)

// AccountService handles signup, login and role management. Signup is a
// two-step saga: the credential (with the role claim baked into issued
// tokens) and the user document are separate writes with no shared
// transaction; the user document write is what feeds the change stream.
type AccountService struct {
	users *store.Users
	cfg   *config.Config
}

func NewAccountService(users *store.Users, cfg *config.Config) *AccountService {
	return &AccountService{users: users, cfg: cfg}
}

func (s *AccountService) Signup(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	if req.Email == "" || len(req.Password) < 8 {
		return nil, errors.New("email required and password must be at least 8 characters")
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := models.RoleClient
	if s.cfg.SuperAdminEmail != "" && req.Email == s.cfg.SuperAdminEmail {
		role = models.RoleSuperAdmin
	}

	user := models.User{
		ID:       uuid.New(),
		Username: req.Username,
		Email:    req.Email,
		Password: string(hash),
		Role:     role,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		return nil, err
	}

	return s.respond(&user)
}

func (s *AccountService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.respond(user)
}

// UpdateRole changes a user's role. Only a SUPER_ADMIN caller may do this;
// tokens already issued keep their old role claim until the next login.
func (s *AccountService) UpdateRole(ctx context.Context, callerRole string, userID uuid.UUID, newRole string) error {
	if callerRole != models.RoleSuperAdmin {
		return ErrNotAuthorized
	}
	if !models.ValidRole(newRole) {
		return ErrInvalidRole
	}
	if err := s.users.UpdateRole(ctx, userID, newRole); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *AccountService) respond(user *models.User) (*dto.AuthResponse, error) {
	token, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{
		AccessToken: token,
		User: dto.UserResponse{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email,
			Role:     user.Role,
		},
	}, nil
}

func (s *AccountService) generateToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"role":  user.Role,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(s.cfg.JWTExpiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}
