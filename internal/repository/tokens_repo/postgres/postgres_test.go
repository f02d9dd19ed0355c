package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTokens(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT token, user_id FROM auth_tokens").
		WillReturnRows(sqlmock.NewRows([]string{"token", "user_id"}).
			AddRow("tok-a", "u1").
			AddRow("tok-b", "u2"))

	tokens, err := NewTokenSource(db).LoadTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"tok-a": "u1", "tok-b": "u2"}, tokens)
	assert.NoError(t, mock.ExpectationsWereMet())
}
