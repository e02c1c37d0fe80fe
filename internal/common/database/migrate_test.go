// internal/common/database/migrate_test.go
package database

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS notification_templates")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(fmt.Errorf("permission denied"))

	err = Migrate(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestSchema_MatchesStoreColumns(t *testing.T) {
	for _, col := range []string{"from_addr", "to_addr", "cancel_reason", "attachment_data", "is_unique", "processing"} {
		assert.Contains(t, schema, col)
	}
	assert.Contains(t, schema, "coalesce(nullif(channel, ''), 'e-mail')")
}
