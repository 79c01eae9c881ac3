package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"bookkeeping/internal/auth"
	"bookkeeping/internal/model"
	"bookkeeping/internal/repository"
	"bookkeeping/pkg/apperror"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- DTOs ---

type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email,max=255"`
	Password    string `json:"password" binding:"required,min=6,max=72"`
	CompanyName string `json:"company_name" binding:"required,max=255"`
	Name        string `json:"name" binding:"required,max=100"`
	Phone       string `json:"phone" binding:"max=30"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	CompanyName *string `json:"company_name" binding:"omitempty,max=255"`
	Phone       *string `json:"phone" binding:"omitempty,max=30"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6,max=72"`
}

type UserResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	CompanyName string     `json:"company_name"`
	Phone       string     `json:"phone"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		CompanyName: u.CompanyName,
		Phone:       u.Phone,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// errInvalidCredentials is deliberately the same for unknown email and wrong password
var errInvalidCredentials = apperror.Unauthorized("Invalid email or password")

// --- Interface ---

type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	Profile(ctx context.Context, userID string) (*UserResponse, error)
	UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*UserResponse, error)
	ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) (*AuthResponse, error)
}

type authService struct {
	userRepo    repository.UserRepository
	companyRepo repository.CompanyRepository
	txManager   repository.TransactionManager
	tokens      *auth.TokenService
	logger      *zap.Logger
	now         func() time.Time
}

func NewAuthService(
	userRepo repository.UserRepository,
	companyRepo repository.CompanyRepository,
	txManager repository.TransactionManager,
	tokens *auth.TokenService,
	logger *zap.Logger,
) AuthService {
	return &authService{
		userRepo:    userRepo,
		companyRepo: companyRepo,
		txManager:   txManager,
		tokens:      tokens,
		logger:      logger,
		now:         time.Now,
	}
}

// --- Implementation ---

func (s *authService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	user := &model.User{
		Email:       strings.ToLower(trimmed(req.Email)),
		Name:        trimmed(req.Name),
		CompanyName: trimmed(req.CompanyName),
		Phone:       trimmed(req.Phone),
	}

	var details []apperror.FieldError
	if user.Email == "" {
		details = append(details, apperror.FieldError{Field: "email", Message: "This field is required"})
	}
	if len(req.Password) < 6 {
		details = append(details, apperror.FieldError{Field: "password", Message: "Must be at least 6 characters"})
	}
	if user.CompanyName == "" {
		details = append(details, apperror.FieldError{Field: "company_name", Message: "This field is required"})
	}
	if user.Name == "" {
		details = append(details, apperror.FieldError{Field: "name", Message: "This field is required"})
	}
	if len(details) > 0 {
		return nil, apperror.Validation("Request validation failed", details...)
	}

	if _, err := s.userRepo.GetByEmail(ctx, user.Email); err == nil {
		return nil, apperror.Conflict("Email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.userRepo.Create(txCtx, user); err != nil {
			if apperror.Is(apperror.From(err), apperror.KindConflict) {
				return apperror.Conflict("Email already registered")
			}
			return err
		}
		return s.companyRepo.Upsert(txCtx, &model.CompanyInfo{
			UserID:      user.ID,
			CompanyName: user.CompanyName,
			Phone:       user.Phone,
			Email:       user.Email,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID))
	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	email := strings.ToLower(trimmed(req.Email))
	user, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Debug("Login failed: unknown email")
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	ok, err := auth.CheckPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Debug("Login failed: wrong password", zap.String("user_id", user.ID))
		return nil, errInvalidCredentials
	}

	now := s.now()
	if err := s.userRepo.TouchLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now

	return s.issue(user)
}

func (s *authService) Logout(ctx context.Context, claims *auth.Claims) error {
	return s.tokens.Revoke(ctx, claims)
}

func (s *authService) Profile(ctx context.Context, userID string) (*UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "User")
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "User")
	}

	var details []apperror.FieldError
	if req.Name != nil {
		if user.Name = trimmed(*req.Name); user.Name == "" {
			details = append(details, apperror.FieldError{Field: "name", Message: "Must not be empty"})
		}
	}
	if req.CompanyName != nil {
		if user.CompanyName = trimmed(*req.CompanyName); user.CompanyName == "" {
			details = append(details, apperror.FieldError{Field: "company_name", Message: "Must not be empty"})
		}
	}
	if req.Phone != nil {
		user.Phone = trimmed(*req.Phone)
	}
	if len(details) > 0 {
		return nil, apperror.Validation("Request validation failed", details...)
	}

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

// ChangePassword revokes every earlier session and returns a fresh token
func (s *authService) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) (*AuthResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "User")
	}

	ok, err := auth.CheckPassword(user.PasswordHash, req.CurrentPassword)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Validation("Current password is incorrect",
			apperror.FieldError{Field: "current_password", Message: "Current password is incorrect"})
	}
	if len(req.NewPassword) < 6 {
		return nil, apperror.Validation("Request validation failed",
			apperror.FieldError{Field: "new_password", Message: "Must be at least 6 characters"})
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, hash); err != nil {
		return nil, err
	}
	if err := s.tokens.RevokeAll(ctx, userID); err != nil {
		return nil, err
	}

	s.logger.Info("Password changed", zap.String("user_id", userID))
	return s.issue(user)
}

func (s *authService) issue(user *model.User) (*AuthResponse, error) {
	token, expiresAt, err := s.tokens.Issue(auth.Identity{
		UserID:      user.ID,
		Email:       user.Email,
		Name:        user.Name,
		CompanyName: user.CompanyName,
	})
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, ExpiresAt: expiresAt, User: toUserResponse(user)}, nil
}
