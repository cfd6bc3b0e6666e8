package repository

import (
	"context"
	"path/filepath"
	"testing"

	"storefront-api/internal/client"
	"storefront-api/internal/config"
	"storefront-api/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := client.InitDBClient(config.Database{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price string, stock int) *model.Product {
	t.Helper()
	product := &model.Product{
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
	require.NoError(t, db.WithContext(context.Background()).Create(product).Error)
	return product
}

func seedUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()
	user := &model.User{
		Email:        email,
		PasswordHash: "x",
		FirstName:    "Test",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}
