package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/contractpro/contractpro/auth"
	"github.com/contractpro/contractpro/internal/config"
	"github.com/contractpro/contractpro/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), GormConfig(false))
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

func TestDialector(t *testing.T) {
	d, err := Dialector(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	d, err = Dialector(config.DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	_, err = Dialector(config.DatabaseConfig{Driver: "mysql"})
	assert.Error(t, err)
}

func TestMigrateFallsBackToAutoMigrateOnSQLite(t *testing.T) {
	conn := openTestDB(t)
	cfg := &config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite"},
		App:      config.AppConfig{Migrations: true},
	}
	require.NoError(t, Migrate(conn, cfg, zerolog.Nop()))
	for _, m := range Models() {
		assert.True(t, conn.Migrator().HasTable(m), "%T", m)
	}
	require.NoError(t, Ping(conn))
}

func TestSeedIsIdempotent(t *testing.T) {
	conn := openTestDB(t)
	require.NoError(t, AutoMigrate(conn))
	clk := testclock.NewClock(time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	first, err := Seed(ctx, conn, clk, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, SeedSummary{Users: 3, Clients: 5, Contracts: 4, Invoices: 5}, first)

	second, err := Seed(ctx, conn, clk, zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, second.Skipped)

	var users, invoices int64
	require.NoError(t, conn.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, conn.Model(&models.Invoice{}).Count(&invoices).Error)
	assert.EqualValues(t, 3, users)
	assert.EqualValues(t, 5, invoices)
}

func TestSeedData(t *testing.T) {
	conn := openTestDB(t)
	require.NoError(t, AutoMigrate(conn))
	clk := testclock.NewClock(time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC))
	_, err := Seed(context.Background(), conn, clk, zerolog.Nop())
	require.NoError(t, err)

	var demo models.User
	require.NoError(t, conn.Where("email = ?", DemoEmail).First(&demo).Error)
	assert.True(t, auth.CheckPassword(demo.Password, "demo123"))
	assert.Equal(t, models.RoleFreelancer, demo.Role)

	var first models.Invoice
	require.NoError(t, conn.Preload("Items").Where("invoice_number = ?", "INV-0001").First(&first).Error)
	assert.Equal(t, models.InvoiceStatusPaid, first.Status)
	assert.Len(t, first.Items, 3)
	// 5000 + 8.5% tax
	assert.True(t, first.Total.Equal(decimal.NewFromInt(5425)), first.Total.String())

	var overdue models.Invoice
	require.NoError(t, conn.Preload("Reminders").Where("invoice_number = ?", "INV-0003").First(&overdue).Error)
	assert.Equal(t, models.InvoiceStatusOverdue, overdue.Status)
	require.Len(t, overdue.Reminders, 1)
	assert.Equal(t, models.ReminderFirst, overdue.Reminders[0].Type)

	var signed models.Contract
	require.NoError(t, conn.Where("status = ?", models.ContractStatusSigned).First(&signed).Error)
	require.NotNil(t, signed.SignatureID)
	require.NotNil(t, signed.SignedAt)
	assert.Equal(t, "Website Development Project", signed.Title)
}
