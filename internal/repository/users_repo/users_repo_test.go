package users_repo

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/domain"
)

func TestGetPrincipalTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, username, role FROM users").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "role"}).AddRow("u1", "alice", "member"))
	mock.ExpectQuery("SELECT team_id, role FROM team_members").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"team_id", "role"}).AddRow("t1", "admin").AddRow("t2", "moderator"))

	p, err := NewUserRepository().GetPrincipalTx(context.Background(), db, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, domain.RoleMember, p.Role)
	assert.Equal(t, []domain.TeamMembership{
		{TeamID: "t1", Role: domain.RoleAdmin},
		{TeamID: "t2", Role: domain.RoleModerator},
	}, p.Teams)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPrincipalTxNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, username, role FROM users").WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "role"}))

	_, err = NewUserRepository().GetPrincipalTx(context.Background(), db, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetPrincipalTxRejectsUnknownRole(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, username, role FROM users").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "role"}).AddRow("u1", "alice", "superuser"))

	_, err = NewUserRepository().GetPrincipalTx(context.Background(), db, "u1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGetPrincipalTxStoreFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, username, role FROM users").WillReturnError(errors.New("connection refused"))

	_, err = NewUserRepository().GetPrincipalTx(context.Background(), db, "u1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrNotFound))
}
