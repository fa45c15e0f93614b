package service

import (
	"context"
	"errors"

	userserrors "campusbook/internal/users/errors"
	"campusbook/internal/users/repository"
	"campusbook/pkg/auth"
	"campusbook/pkg/config"
	apperrors "campusbook/pkg/errors"
	"campusbook/pkg/model"
	"campusbook/pkg/sanitizer"
	"campusbook/pkg/token"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// AuthResult is what both registration and login hand back: the public view
// of the account plus a signed access token. QRPayload is the sealed string
// the client renders as a campus-access QR code; it is only set at
// registration.
type AuthResult struct {
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	AccessToken string `json:"access_token"`
	QRPayload   string `json:"qr_payload,omitempty"`
}

type registrationInput struct {
	Name     string `validate:"required,min=1,max=100"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=72"`
}

type UserService interface {
	Register(ctx context.Context, name, email, password string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
}

type userService struct {
	repo     repository.UserRepository
	hasher   auth.PasswordHasher
	jwt      *auth.JWTManager
	sealer   *token.Sealer
	validate *validator.Validate
	cfg      *config.Config
}

func NewUserService(repo repository.UserRepository, hasher auth.PasswordHasher, jwt *auth.JWTManager, sealer *token.Sealer, cfg *config.Config) UserService {
	return &userService{
		repo:     repo,
		hasher:   hasher,
		jwt:      jwt,
		sealer:   sealer,
		validate: validator.New(),
		cfg:      cfg,
	}
}

func (s *userService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	name = sanitizer.NormalizeName(name)
	email = sanitizer.NormalizeEmail(email)

	input := registrationInput{Name: name, Email: email, Password: password}
	if err := s.validate.Struct(input); err != nil {
		return nil, apperrors.InvalidInput("Name, a valid email and a password of at least 8 characters are required")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.cfg.Log.Error("Failed to hash password", "error", err)
		return nil, apperrors.Internal("Failed to register user", err)
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}

	// The unique email index is the arbiter under concurrent registration.
	if err := s.repo.Insert(ctx, user); err != nil {
		if errors.Is(err, userserrors.ErrDuplicateEmail) {
			return nil, apperrors.Conflict("Email already registered")
		}
		s.cfg.Log.Error("Failed to insert user", "error", err)
		return nil, apperrors.Internal("Failed to register user", err)
	}

	accessToken, err := s.jwt.Issue(user.ID, user.Email)
	if err != nil {
		s.cfg.Log.Error("Failed to issue access token", "user_id", user.ID, "error", err)
		return nil, apperrors.Internal("Failed to issue access token", err)
	}

	qrPayload, err := s.sealer.SealString(user.Email)
	if err != nil {
		s.cfg.Log.Error("Failed to seal QR payload", "user_id", user.ID, "error", err)
		return nil, apperrors.Internal("Failed to register user", err)
	}

	s.cfg.Log.Info("User registered", "user_id", user.ID, "email", user.Email)

	return &AuthResult{
		UserID:      user.ID,
		Name:        user.Name,
		Email:       user.Email,
		AccessToken: accessToken,
		QRPayload:   qrPayload,
	}, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = sanitizer.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.InvalidInput("Email and password are required")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			// Identical rejection for unknown email and wrong password.
			return nil, apperrors.Unauthorized("Invalid email or password")
		}
		s.cfg.Log.Error("Failed to look up user", "error", err)
		return nil, apperrors.Internal("Failed to log in", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, apperrors.Unauthorized("Invalid email or password")
	}

	accessToken, err := s.jwt.Issue(user.ID, user.Email)
	if err != nil {
		s.cfg.Log.Error("Failed to issue access token", "user_id", user.ID, "error", err)
		return nil, apperrors.Internal("Failed to issue access token", err)
	}

	s.cfg.Log.Info("User logged in", "user_id", user.ID)

	return &AuthResult{
		UserID:      user.ID,
		Name:        user.Name,
		Email:       user.Email,
		AccessToken: accessToken,
	}, nil
}
