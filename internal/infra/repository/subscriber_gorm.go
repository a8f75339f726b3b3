package repository

import (
	"context"
	"errors"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"

	"gorm.io/gorm"
)

type SubscriberGormRepository struct {
	db *gorm.DB
}

func NewSubscriberGormRepository(db *gorm.DB) *SubscriberGormRepository {
	return &SubscriberGormRepository{db: db}
}

func (r *SubscriberGormRepository) CreateIfAbsent(ctx context.Context, s model.Subscriber) (model.Subscriber, bool, error) {
	var existing model.Subscriber
	err := r.db.WithContext(ctx).Where("email = ?", s.Email).First(&existing).Error
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Subscriber{}, false, translate(err)
	}

	if err := r.db.WithContext(ctx).Create(&s).Error; err != nil {
		return model.Subscriber{}, false, translate(err)
	}
	return s, true, nil
}
