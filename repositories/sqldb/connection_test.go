package sqldb

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/governed-notebook/config"
)

func TestResolveDriver(t *testing.T) {
	tests := []struct {
		dsn        string
		wantDriver string
		wantSource string
	}{
		{"postgres://u:p@db:5432/audit?sslmode=disable", DriverPostgres, "postgres://u:p@db:5432/audit?sslmode=disable"},
		{"postgresql://db/audit", DriverPostgres, "postgresql://db/audit"},
		{"host=db user=u dbname=audit", DriverPostgres, "host=db user=u dbname=audit"},
		{"sqlite:/tmp/data.db", DriverSQLite, "/tmp/data.db"},
		{"sqlite:///tmp/data.db", DriverSQLite, "/tmp/data.db"},
		{"file:data.db?mode=ro", DriverSQLite, "file:data.db?mode=ro"},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			driver, source := ResolveDriver(tt.dsn)
			assert.Equal(t, tt.wantDriver, driver)
			assert.Equal(t, tt.wantSource, source)
		})
	}
}

func TestNewDB_SQLite(t *testing.T) {
	path := t.TempDir() + "/data.db"
	db, err := NewDB(config.DatabaseConfig{ConnectionString: "sqlite:" + path, MaxOpenConns: 2, MaxIdleConns: 1}, nil)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, DriverSQLite, db.Driver())
	assert.NoError(t, db.HealthCheck(context.Background()))
}

func TestHealthCheck_PingFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	err = Wrap(sqlDB, DriverPostgres, nil).HealthCheck(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "health check failed")
}

func TestInitAuditSchema(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS code_execution_logs").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, Wrap(sqlDB, DriverPostgres, nil).InitAuditSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitAuditSchema_RejectsSQLite(t *testing.T) {
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	assert.Error(t, Wrap(sqlDB, DriverSQLite, nil).InitAuditSchema(context.Background()))
}
