package usecase

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
	repo "github.com/danghaonhien/the-boring-coffee-sub000/internal/repository"
)

type NewsletterUsecase struct {
	subscribers repo.SubscriberRepository
	validator   InputValidator
	notifier    Notifier
	welcomeCode string
	log         *slog.Logger
}

// DI
func NewNewsletterUsecase(
	subscribers repo.SubscriberRepository,
	validator InputValidator,
	notifier Notifier,
	welcomeCode string,
	log *slog.Logger,
) *NewsletterUsecase {
	return &NewsletterUsecase{
		subscribers: subscribers,
		validator:   validator,
		notifier:    notifier,
		welcomeCode: welcomeCode,
		log:         log,
	}
}

type SubscribeResult struct {
	Email             string `json:"email"`
	DiscountCode      string `json:"discount_code"`
	AlreadySubscribed bool   `json:"already_subscribed"`
}

// 登録済みなら同じコードを返す（メールは初回だけ）
func (u *NewsletterUsecase) Subscribe(ctx context.Context, email string) (SubscribeResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !u.validator.ValidEmail(email) {
		return SubscribeResult{}, NewHTTPError(http.StatusBadRequest, "invalid email")
	}

	s, created, err := u.subscribers.CreateIfAbsent(ctx, model.Subscriber{
		Email:        email,
		DiscountCode: u.welcomeCode,
	})
	if err != nil {
		return SubscribeResult{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if created {
		if err := u.notifier.NewsletterWelcome(ctx, s.Email, s.DiscountCode); err != nil {
			u.log.Warn("newsletter: welcome email failed", "err", err)
		}
	}

	return SubscribeResult{
		Email:             s.Email,
		DiscountCode:      s.DiscountCode,
		AlreadySubscribed: !created,
	}, nil
}
