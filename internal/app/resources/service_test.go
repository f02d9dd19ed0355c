package resources

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"marketplace/internal/domain"
	"marketplace/internal/repository/resources_repo"
)

var resourceCols = []string{"id", "name", "description", "thread", "owner_id", "team_id", "price", "has_icon", "downloads"}

func newService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(db, resources_repo.NewResourceRepository(), zap.NewNop()), mock
}

func TestLoadResourceWithTeam(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery("FROM resources").WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(resourceCols).AddRow("r1", "Pack", "", "", "owner", "t1", int64(500), false, int64(3)))
	mock.ExpectQuery("FROM teams").WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("t1", "Studio"))

	res, team, err := svc.LoadResourceWithTeam(context.Background(), "r1")
	require.NoError(t, err)
	require.NotNil(t, res.TeamID)
	assert.Equal(t, "t1", *res.TeamID)
	assert.Equal(t, &domain.Team{ID: "t1", Name: "Studio"}, team)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadTeamlessResource(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery("FROM resources").WithArgs("r2").
		WillReturnRows(sqlmock.NewRows(resourceCols).AddRow("r2", "Solo", "", "", "owner", nil, int64(0), true, int64(0)))

	res, team, err := svc.LoadResourceWithTeam(context.Background(), "r2")
	require.NoError(t, err)
	assert.Nil(t, res.TeamID)
	assert.Nil(t, team)
	assert.True(t, res.IsFree())
}

func TestUpdate(t *testing.T) {
	svc, mock := newService(t)
	res := &domain.Resource{ID: "r1", Name: "Old", Description: "d", Thread: "th"}
	name := "New"

	mock.ExpectExec("UPDATE resources").WithArgs("New", "d", "th", "r1").WillReturnResult(sqlmock.NewResult(0, 1))
	updated, err := svc.Update(context.Background(), res, domain.ResourceUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)
	assert.Equal(t, "Old", res.Name, "input is not mutated")

	_, err = svc.Update(context.Background(), res, domain.ResourceUpdate{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	blank := "  "
	_, err = svc.Update(context.Background(), res, domain.ResourceUpdate{Name: &blank})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectExec("DELETE FROM resources").WithArgs("r1").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, svc.Delete(context.Background(), "r1"))

	mock.ExpectExec("DELETE FROM resources").WithArgs("gone").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, svc.Delete(context.Background(), "gone"), domain.ErrNotFound)
}
