package testhelpers

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/route-composer/internal/config"
)

// TestDB - подключение к тестовой базе каталога
type TestDB struct {
	DB     *sqlx.DB
	Logger *zap.Logger
}

// testDatabaseConfig читает TEST_DB_* поверх значений для docker-compose
func testDatabaseConfig() config.DatabaseConfig {
	port, err := strconv.Atoi(envOr("TEST_DB_PORT", "5433"))
	if err != nil {
		port = 5433
	}
	return config.DatabaseConfig{
		Host:     envOr("TEST_DB_HOST", "localhost"),
		Port:     port,
		User:     envOr("TEST_DB_USER", "postgres"),
		Password: envOr("TEST_DB_PASSWORD", "postgres"),
		DBName:   envOr("TEST_DB_NAME", "routes_test"),
		SSLMode:  envOr("TEST_DB_SSLMODE", "disable"),
	}
}

// SetupTestDB подключается к тестовой базе; без Postgres тест пропускается.
// Соединение закрывается через t.Cleanup.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "pgx", testDatabaseConfig().DSN())
	if err != nil {
		t.Skipf("postgres not available for integration tests: %v", err)
	}

	tdb := &TestDB{DB: db, Logger: zap.NewNop()}
	t.Cleanup(tdb.Close)
	return tdb
}

// Close закрывает соединение; повторный вызов безопасен
func (tdb *TestDB) Close() {
	if tdb.DB != nil {
		_ = tdb.DB.Close()
	}
}

// Cleanup очищает таблицы каталога
func (tdb *TestDB) Cleanup(ctx context.Context) error {
	_, err := tdb.DB.ExecContext(ctx, "TRUNCATE TABLE airstrips, locations CASCADE")
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
