package service

import (
	"storefront-api/internal/dto"
	"storefront-api/internal/model"

	"github.com/shopspring/decimal"
)

func (s *ServiceSuite) TestProductLifecycle() {
	category, err := s.catalog.CreateCategory(s.ctx, &dto.CategoryRequest{Name: "Kitchen"})
	s.Require().NoError(err)

	_, err = s.catalog.CreateCategory(s.ctx, &dto.CategoryRequest{Name: "Kitchen"})
	s.ErrorIs(err, ErrConflict)

	product, err := s.catalog.CreateProduct(s.ctx, &dto.ProductRequest{
		Name:       "Mug",
		Price:      decimal.RequireFromString("9.99"),
		Stock:      5,
		Images:     []string{"/img/mug.png"},
		CategoryID: &category.ID,
	})
	s.Require().NoError(err)
	s.Require().NotNil(product.Category)
	s.Equal("Kitchen", product.Category.Name)
	s.Equal([]string{"/img/mug.png"}, product.Images)

	products, err := s.catalog.ListProducts(s.ctx)
	s.Require().NoError(err)
	s.Len(products, 1)

	updated, err := s.catalog.UpdateProduct(s.ctx, product.ID, &dto.ProductRequest{
		Name:  "Big Mug",
		Price: decimal.RequireFromString("12.00"),
		Stock: 7,
	})
	s.Require().NoError(err)
	s.Equal("Big Mug", updated.Name)
	s.Nil(updated.CategoryID)
	s.Equal(7, updated.Stock)

	got, err := s.catalog.GetProduct(s.ctx, product.ID)
	s.Require().NoError(err)
	s.Equal("Big Mug", got.Name)

	s.Require().NoError(s.catalog.DeleteProduct(s.ctx, product.ID))
	_, err = s.catalog.GetProduct(s.ctx, product.ID)
	s.ErrorIs(err, ErrNotFound)
	s.ErrorIs(s.catalog.DeleteProduct(s.ctx, product.ID), ErrNotFound)
}

func (s *ServiceSuite) TestProductValidation() {
	missing := "missing"
	cases := map[string]*dto.ProductRequest{
		"no name":          {Price: decimal.NewFromInt(1)},
		"negative price":   {Name: "x", Price: decimal.NewFromInt(-1)},
		"negative stock":   {Name: "x", Price: decimal.NewFromInt(1), Stock: -1},
		"unknown category": {Name: "x", Price: decimal.NewFromInt(1), CategoryID: &missing},
	}
	for name, req := range cases {
		_, err := s.catalog.CreateProduct(s.ctx, req)
		s.ErrorIs(err, ErrInvalidInput, name)
	}

	_, err := s.catalog.UpdateProduct(s.ctx, "missing", &dto.ProductRequest{Name: "x", Price: decimal.NewFromInt(1)})
	s.ErrorIs(err, ErrNotFound)
}

func (s *ServiceSuite) TestReviews() {
	user := s.createUser("reviewer@example.com", model.RoleCustomer)
	product := s.createProduct("Mug", "9.99", 5)

	_, err := s.catalog.CreateReview(s.ctx, product.ID, user, &dto.ReviewRequest{Rating: 6})
	s.ErrorIs(err, ErrInvalidInput)
	_, err = s.catalog.CreateReview(s.ctx, product.ID, user, &dto.ReviewRequest{Rating: 0})
	s.ErrorIs(err, ErrInvalidInput)
	_, err = s.catalog.CreateReview(s.ctx, "missing", user, &dto.ReviewRequest{Rating: 5})
	s.ErrorIs(err, ErrNotFound)

	review, err := s.catalog.CreateReview(s.ctx, product.ID, user, &dto.ReviewRequest{Rating: 5, Comment: " great "})
	s.Require().NoError(err)
	s.Equal("great", review.Comment)

	got, err := s.catalog.GetProduct(s.ctx, product.ID)
	s.Require().NoError(err)
	s.Require().Len(got.Reviews, 1)
	s.Equal(user.Email, got.Reviews[0].User.Email)

	s.Require().NoError(s.catalog.DeleteReview(s.ctx, review.ID))
	s.ErrorIs(s.catalog.DeleteReview(s.ctx, review.ID), ErrNotFound)

	got, err = s.catalog.GetProduct(s.ctx, product.ID)
	s.Require().NoError(err)
	s.Empty(got.Reviews)
}
