package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
	repo "github.com/danghaonhien/the-boring-coffee-sub000/internal/repository"
)

// ユーザーは認証プロバイダ側で作られる。ここではロール管理用の行を持つだけ
type UserUsecase struct {
	userRepo repo.UserRepository
}

// DI
func NewUserUsecase(userRepo repo.UserRepository) *UserUsecase {
	return &UserUsecase{userRepo: userRepo}
}

type UserDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func toUserDTO(u model.User) UserDTO {
	return UserDTO{ID: u.ID, Email: u.Email, Role: string(u.Role)}
}

// Sync は初回ログイン時に行を作り、以降はemailだけ更新する。
func (u *UserUsecase) Sync(ctx context.Context, userID string, email string) (UserDTO, error) {
	if userID == "" {
		return UserDTO{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	now := time.Now()
	if err := u.userRepo.Upsert(ctx, model.User{
		ID:        userID,
		Email:     strings.TrimSpace(email),
		Role:      model.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return UserDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return u.Me(ctx, userID)
}

func (u *UserUsecase) Me(ctx context.Context, userID string) (UserDTO, error) {
	if userID == "" {
		return UserDTO{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	user, err := u.userRepo.FindByID(ctx, userID)
	if err == repo.ErrNotFound {
		return UserDTO{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return UserDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toUserDTO(user), nil
}

// 管理者によるロール変更（自分自身の降格は不可）
func (u *UserUsecase) SetRole(ctx context.Context, actor string, userID string, role string) (UserDTO, error) {
	if actor == "" {
		return UserDTO{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(userID) == "" {
		return UserDTO{}, NewHTTPError(http.StatusBadRequest, "invalid user_id")
	}

	r := model.Role(strings.ToUpper(strings.TrimSpace(role)))
	if r != model.RoleUser && r != model.RoleAdmin {
		return UserDTO{}, NewHTTPError(http.StatusBadRequest, "invalid role")
	}
	if actor == userID && r != model.RoleAdmin {
		return UserDTO{}, NewHTTPError(http.StatusBadRequest, "cannot demote yourself")
	}

	err := u.userRepo.SetRole(ctx, userID, r)
	if err == repo.ErrNotFound {
		return UserDTO{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return UserDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return u.Me(ctx, userID)
}
