package repository

import (
	"testing"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
	infradb "github.com/danghaonhien/the-boring-coffee-sub000/internal/infra/db"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// インメモリSQLiteでテスト用DBを作る
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	// :memory: は接続ごとに別DBになるので1本に固定
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, infradb.Migrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func seedProducts(t *testing.T, db *gorm.DB, products ...model.Product) {
	t.Helper()
	for _, p := range products {
		require.NoError(t, db.Create(&p).Error)
	}
}

func coffee(id int64, name string, price int64, category string) model.Product {
	return model.Product{ID: id, Name: name, Price: price, Stock: 10, Category: category, Description: name + " roast"}
}
