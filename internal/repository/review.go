package repository

import (
	"context"

	"storefront-api/internal/model"

	"gorm.io/gorm"
)

type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) error
	FindByID(ctx context.Context, reviewID string) (*model.Review, error)
	FindByProductID(ctx context.Context, productID string) ([]*model.Review, error)
	Delete(ctx context.Context, reviewID string) error
}

type reviewRepoImpl struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepoImpl{
		db: db,
	}
}

func (r *reviewRepoImpl) Create(ctx context.Context, review *model.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *reviewRepoImpl) FindByID(ctx context.Context, reviewID string) (*model.Review, error) {
	var review model.Review
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("id = ?", reviewID).
		First(&review).Error
	if err != nil {
		return nil, err
	}

	return &review, nil
}

func (r *reviewRepoImpl) FindByProductID(ctx context.Context, productID string) ([]*model.Review, error) {
	var reviews []*model.Review
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("product_id = ?", productID).
		Order("created_at").
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}

	return reviews, nil
}

func (r *reviewRepoImpl) Delete(ctx context.Context, reviewID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", reviewID).
		Delete(&model.Review{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
