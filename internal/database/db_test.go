package database

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/expo-appointments/internal/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DBConfig{User: "expo", Pass: "s3cret", Host: "db", Port: "3306", Name: "expo", LockWait: 5 * time.Second})
	assert.True(t, strings.HasPrefix(dsn, "expo:s3cret@tcp(db:3306)/expo?"), dsn)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "innodb_lock_wait_timeout=5")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestStatementsSplitsSchema(t *testing.T) {
	stmts := statements(schema)
	assert.Len(t, stmts, 10)
	for _, s := range stmts {
		assert.True(t, strings.HasPrefix(s, "CREATE TABLE IF NOT EXISTS"), s)
		assert.NotContains(t, s, "--")
	}
}
