// Package user implements registration and login.
package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/apostol-ai/agent-backend/internal/auth"
	"github.com/apostol-ai/agent-backend/internal/entity"
	"github.com/apostol-ai/agent-backend/internal/pkg/validator"
	"github.com/apostol-ai/agent-backend/internal/repository"
)

type UserUsecase struct {
	userRepo  repository.UserRepository
	auth      *auth.Manager
	validator *validator.Validator
	logger    *zap.Logger
}

func NewUsecase(
	userRepo repository.UserRepository,
	authManager *auth.Manager,
	validator *validator.Validator,
	logger *zap.Logger,
) *UserUsecase {
	return &UserUsecase{
		userRepo:  userRepo,
		auth:      authManager,
		validator: validator,
		logger:    logger,
	}
}

func (uc *UserUsecase) Register(ctx context.Context, req *entity.RegisterRequest) (*entity.User, error) {
	if err := uc.validator.ValidateRegister(req); err != nil {
		return nil, err
	}

	hash, err := uc.auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := uc.userRepo.Create(ctx, entity.User{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	ctxzap.Info(ctx, "user registered",
		zap.String("user_id", user.ID),
		zap.String("email", user.Email),
	)
	return user, nil
}

// Login checks the credentials and issues an access token. Unknown
// email and wrong password look identical to the caller.
func (uc *UserUsecase) Login(ctx context.Context, req *entity.LoginRequest) (*entity.LoginResponse, error) {
	user, err := uc.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, entity.ErrUserNotFound) {
			return nil, entity.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !uc.auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, entity.ErrInvalidCredentials
	}

	token, err := uc.auth.IssueToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	ctxzap.Info(ctx, "user logged in", zap.String("user_id", user.ID))
	return &entity.LoginResponse{AccessToken: token}, nil
}
