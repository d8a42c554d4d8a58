package database

import (
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSNRoundTripsThroughDriver(t *testing.T) {
	dsn := Options{
		User:            "booking",
		Password:        "s3cret",
		Host:            "db.internal",
		Port:            "3306",
		Name:            "hotel",
		LockWaitTimeout: 5 * time.Second,
	}.DSN()

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "booking", cfg.User)
	assert.Equal(t, "s3cret", cfg.Passwd)
	assert.Equal(t, "db.internal:3306", cfg.Addr)
	assert.Equal(t, "hotel", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, time.UTC, cfg.Loc)
	assert.Equal(t, "5", cfg.Params["innodb_lock_wait_timeout"])
}

func TestDSNOmitsLockTimeoutByDefault(t *testing.T) {
	dsn := Options{User: "u", Host: "localhost", Port: "3306", Name: "hotel"}.DSN()
	assert.NotContains(t, dsn, "innodb_lock_wait_timeout")
}

func TestSchemaIsIdempotent(t *testing.T) {
	require.NotEmpty(t, schema)
	for _, stmt := range schema {
		assert.True(t, strings.HasPrefix(stmt, "CREATE TABLE IF NOT EXISTS"), stmt[:40])
	}
}
