package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront-api/internal/dto"
	"storefront-api/internal/model"
	"storefront-api/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CatalogService interface {
	ListProducts(ctx context.Context) ([]*model.Product, error)
	GetProduct(ctx context.Context, productID string) (*model.Product, error)
	CreateProduct(ctx context.Context, req *dto.ProductRequest) (*model.Product, error)
	UpdateProduct(ctx context.Context, productID string, req *dto.ProductRequest) (*model.Product, error)
	DeleteProduct(ctx context.Context, productID string) error

	ListCategories(ctx context.Context) ([]*model.Category, error)
	CreateCategory(ctx context.Context, req *dto.CategoryRequest) (*model.Category, error)

	CreateReview(ctx context.Context, productID string, user *model.User, req *dto.ReviewRequest) (*model.Review, error)
	DeleteReview(ctx context.Context, reviewID string) error
}

type catalogServiceImpl struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	reviewRepo   repository.ReviewRepository
	productCache repository.ProductCache
	logger       *zap.Logger
}

func NewCatalogService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	reviewRepo repository.ReviewRepository,
	productCache repository.ProductCache,
	logger *zap.Logger,
) CatalogService {
	return &catalogServiceImpl{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		reviewRepo:   reviewRepo,
		productCache: productCache,
		logger:       logger,
	}
}

func (s *catalogServiceImpl) ListProducts(ctx context.Context) ([]*model.Product, error) {
	products, err := s.productRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *catalogServiceImpl) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	cached, err := s.productCache.Get(ctx, productID)
	if err != nil {
		s.logger.Warn("read product cache", zap.String("product_id", productID), zap.Error(err))
	}
	if cached != nil {
		return cached, nil
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, storeError(err, "product %s", productID)
	}

	if err := s.productCache.Set(ctx, product); err != nil {
		s.logger.Warn("write product cache", zap.String("product_id", productID), zap.Error(err))
	}
	return product, nil
}

func (s *catalogServiceImpl) validateProduct(ctx context.Context, req *dto.ProductRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: product name is required", ErrInvalidInput)
	}
	if req.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if req.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidInput)
	}
	if req.CategoryID != nil && *req.CategoryID != "" {
		_, err := s.categoryRepo.FindByID(ctx, *req.CategoryID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: category %s does not exist", ErrInvalidInput, *req.CategoryID)
		}
		if err != nil {
			return fmt.Errorf("find category: %w", err)
		}
	}
	return nil
}

func productFromRequest(req *dto.ProductRequest) *model.Product {
	images := req.Images
	if images == nil {
		images = []string{}
	}
	categoryID := req.CategoryID
	if categoryID != nil && *categoryID == "" {
		categoryID = nil
	}

	return &model.Product{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Price:       req.Price.Round(2),
		Stock:       req.Stock,
		Images:      images,
		CategoryID:  categoryID,
	}
}

func (s *catalogServiceImpl) CreateProduct(ctx context.Context, req *dto.ProductRequest) (*model.Product, error) {
	if err := s.validateProduct(ctx, req); err != nil {
		return nil, err
	}

	product := productFromRequest(req)
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, storeError(err, "store product")
	}

	return s.reload(ctx, product.ID)
}

func (s *catalogServiceImpl) UpdateProduct(ctx context.Context, productID string, req *dto.ProductRequest) (*model.Product, error) {
	if err := s.validateProduct(ctx, req); err != nil {
		return nil, err
	}

	product := productFromRequest(req)
	product.ID = productID
	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, storeError(err, "update product %s", productID)
	}
	s.invalidate(ctx, productID)

	return s.reload(ctx, productID)
}

func (s *catalogServiceImpl) DeleteProduct(ctx context.Context, productID string) error {
	if err := s.productRepo.Delete(ctx, productID); err != nil {
		return storeError(err, "delete product %s", productID)
	}
	s.invalidate(ctx, productID)
	return nil
}

func (s *catalogServiceImpl) ListCategories(ctx context.Context) ([]*model.Category, error) {
	categories, err := s.categoryRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *catalogServiceImpl) CreateCategory(ctx context.Context, req *dto.CategoryRequest) (*model.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}

	category := &model.Category{Name: name}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, storeError(err, "store category %s", name)
	}
	return category, nil
}

func (s *catalogServiceImpl) CreateReview(ctx context.Context, productID string, user *model.User, req *dto.ReviewRequest) (*model.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}

	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		return nil, storeError(err, "product %s", productID)
	}

	review := &model.Review{
		ProductID: productID,
		UserID:    user.ID,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, storeError(err, "store review")
	}
	s.invalidate(ctx, productID)

	review.User = user
	return review, nil
}

func (s *catalogServiceImpl) DeleteReview(ctx context.Context, reviewID string) error {
	review, err := s.reviewRepo.FindByID(ctx, reviewID)
	if err != nil {
		return storeError(err, "review %s", reviewID)
	}

	if err := s.reviewRepo.Delete(ctx, reviewID); err != nil {
		return storeError(err, "delete review %s", reviewID)
	}
	s.invalidate(ctx, review.ProductID)
	return nil
}

func (s *catalogServiceImpl) reload(ctx context.Context, productID string) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, storeError(err, "reload product %s", productID)
	}
	return product, nil
}

func (s *catalogServiceImpl) invalidate(ctx context.Context, productID string) {
	if err := s.productCache.Invalidate(ctx, productID); err != nil {
		s.logger.Warn("invalidate product cache", zap.String("product_id", productID), zap.Error(err))
	}
}
