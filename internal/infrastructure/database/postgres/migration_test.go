package postgres

import (
	"testing"

	"github.com/quickcommerce/storefront/internal/domain/product"
	"github.com/quickcommerce/storefront/internal/pkg/logger"
	"github.com/quickcommerce/storefront/internal/pkg/testdb"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationRunsOnEmptyDatabase(t *testing.T) {
	db := testdb.Open(t)
	m := NewMigration(db, logger.Discard())

	require.NoError(t, m.RunAutoMigrations())
	require.NoError(t, m.CreateIndexes())

	for _, table := range []string{"products", "product_images", "carts", "cart_items", "order_addresses", "order_payment_methods", "orders", "order_items", "order_status_history"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex("orders", "idx_orders_user_status"))

	// second run is a no-op
	require.NoError(t, m.RunAutoMigrations())
	require.NoError(t, m.CreateIndexes())
}

func TestSeedInitialDataOnce(t *testing.T) {
	db := testdb.Open(t)
	m := NewMigration(db, logger.Discard())
	require.NoError(t, m.RunAutoMigrations())

	require.NoError(t, m.SeedInitialData())
	require.NoError(t, m.SeedInitialData())

	var count int64
	require.NoError(t, db.Model(&product.Product{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)

	var images int64
	require.NoError(t, db.Model(&product.ProductImage{}).Count(&images).Error)
	assert.Equal(t, int64(1), images)

	assert.NoError(t, m.GetTableInfo())
}

func TestGetTableInfoLogsRowCounts(t *testing.T) {
	db := testdb.Open(t)
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	m := NewMigration(db, log)
	require.NoError(t, m.RunAutoMigrations())
	require.NoError(t, m.SeedInitialData())
	hook.Reset()

	require.NoError(t, m.GetTableInfo())

	rows := map[string]any{}
	for _, entry := range hook.AllEntries() {
		if entry.Message == "table info" {
			rows[entry.Data["table"].(string)] = entry.Data["rows"]
		}
	}
	assert.Len(t, rows, len(Models()))
	assert.Equal(t, int64(3), rows["products"])
	assert.Equal(t, int64(0), rows["orders"])
}
