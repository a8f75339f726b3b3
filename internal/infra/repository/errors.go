package repository

import (
	"errors"
	"fmt"
	"strings"

	repo "github.com/danghaonhien/the-boring-coffee-sub000/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgInsufficientPrivilege = "42501"
	pgUniqueViolation       = "23505"
)

// DBのエラーを repository のセンチネルへ寄せる
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repo.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgInsufficientPrivilege:
			return fmt.Errorf("%w: %s", repo.ErrPermissionDenied, pgErr.Message)
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", repo.ErrDuplicate, pgErr.ConstraintName)
		}
	}

	// sqlite（テスト）
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", repo.ErrDuplicate, err)
	}
	return err
}

func isPermissionDenied(err error) bool {
	return errors.Is(translate(err), repo.ErrPermissionDenied)
}
