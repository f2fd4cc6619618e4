package user

import (
	"context"

	"github.com/apostol-ai/agent-backend/internal/entity"
)

type UserUsecase interface {
	Register(ctx context.Context, req *entity.RegisterRequest) (*entity.User, error)
	Login(ctx context.Context, req *entity.LoginRequest) (*entity.LoginResponse, error)
}
