package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arpitshukla/eventmaster/internal/clock"
	"github.com/arpitshukla/eventmaster/internal/domain"
	"github.com/arpitshukla/eventmaster/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

type AuthUseCase interface {
	Register(ctx context.Context, name, email, password string) (*domain.User, string, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	CurrentUser(ctx context.Context, token string) (domain.Identity, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	users    repository.UserRepository
	logger   *zap.Logger
	clock    clock.Clock
	secret   []byte
	tokenTTL time.Duration
}

type AuthServiceOption func(*AuthService)

func WithClock(clk clock.Clock) AuthServiceOption {
	return func(s *AuthService) {
		s.clock = clk
	}
}

func NewAuthService(users repository.UserRepository, logger *zap.Logger, secret string, tokenTTL time.Duration, opts ...AuthServiceOption) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	service := &AuthService{
		users:    users,
		logger:   logger,
		clock:    clock.NewSystem(),
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, string, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return nil, "", fmt.Errorf("%w: name is required", domain.ErrInvalidArgument)
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", fmt.Errorf("%w: a valid email is required", domain.ErrInvalidArgument)
	}
	if len(password) < 6 {
		return nil, "", fmt.Errorf("%w: password must be at least 6 characters", domain.ErrInvalidArgument)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.UserRoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.signToken(user)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, "", domain.ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", domain.ErrInvalidCredentials
	}

	token, err := s.signToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// CurrentUser verifies a bearer token and returns the identity embedded in
// it. The role comes from the signed claims, never from the request.
func (s *AuthService) CurrentUser(ctx context.Context, tokenString string) (domain.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil || !token.Valid || claims.UserID == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}

	return domain.Identity{
		UserID:  claims.UserID,
		IsAdmin: claims.Role == string(domain.UserRoleAdmin),
	}, nil
}

func (s *AuthService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *AuthService) signToken(user *domain.User) (string, error) {
	now := s.clock.Now()
	claims := Claims{
		UserID: user.ID,
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

var _ AuthUseCase = (*AuthService)(nil)
