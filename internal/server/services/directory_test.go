package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/gatherer/internal/common"
	"github.com/dmitrijs2005/gatherer/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listCall struct {
	level  models.Level
	parent int64
}

type fakeLocationsRepo struct {
	out   []models.Location
	err   error
	calls []listCall

	upserted  []models.Location
	upsertErr error
}

func (f *fakeLocationsRepo) List(ctx context.Context, level models.Level, parentCode int64) ([]models.Location, error) {
	f.calls = append(f.calls, listCall{level, parentCode})
	return f.out, f.err
}

func (f *fakeLocationsRepo) Upsert(ctx context.Context, loc models.Location) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, loc)
	return nil
}

func TestDirectory_States(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := &fakeLocationsRepo{out: []models.Location{{Level: models.LevelState, Code: 23, Name: "Madhya Pradesh"}}}
	s := NewDirectoryService(db, &fakeRepoManager{l: repo})

	got, err := s.States(context.Background())
	require.NoError(t, err)
	assert.Equal(t, repo.out, got)
	assert.Equal(t, []listCall{{models.LevelState, 0}}, repo.calls)
}

func TestDirectory_Children(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := &fakeLocationsRepo{out: []models.Location{{Level: models.LevelBlock, Code: 301, Name: "Berasia", ParentCode: 101}}}
	s := NewDirectoryService(db, &fakeRepoManager{l: repo})

	got, err := s.Children(context.Background(), models.LevelBlock, 101)
	require.NoError(t, err)
	assert.Equal(t, repo.out, got)
	assert.Equal(t, []listCall{{models.LevelBlock, 101}}, repo.calls)
}

func TestDirectory_Children_Validation(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := &fakeLocationsRepo{}
	s := NewDirectoryService(db, &fakeRepoManager{l: repo})

	_, err := s.Children(context.Background(), models.LevelState, 1)
	require.ErrorIs(t, err, common.ErrorValidation)

	_, err = s.Children(context.Background(), models.LevelVillage, 0)
	require.ErrorIs(t, err, common.ErrorValidation)
	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "block", fe.Field)

	assert.Empty(t, repo.calls)
}

func TestDirectory_RepoError(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := NewDirectoryService(db, &fakeRepoManager{l: &fakeLocationsRepo{err: errBoom{}}})

	_, err := s.Children(context.Background(), models.LevelDistrict, 23)
	require.ErrorIs(t, err, common.ErrorInternal)
	assert.Contains(t, err.Error(), "boom")
}

func TestDirectory_Import(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	repo := &fakeLocationsRepo{}
	s := NewDirectoryService(db, &fakeRepoManager{l: repo})

	csvData := `level,code,name,parent_code
state,23,Madhya Pradesh,
district, 101, Bhopal, 23
Village,5001,Kolar,301
`
	n, err := s.Import(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []models.Location{
		{Level: models.LevelState, Code: 23, Name: "Madhya Pradesh"},
		{Level: models.LevelDistrict, Code: 101, Name: "Bhopal", ParentCode: 23},
		{Level: models.LevelVillage, Code: 5001, Name: "Kolar", ParentCode: 301},
	}, repo.upserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectory_Import_Rejects(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := NewDirectoryService(db, &fakeRepoManager{l: &fakeLocationsRepo{}})

	for name, in := range map[string]string{
		"unknown level":     "tehsil,1,X,2\n",
		"bad code":          "state,x,X,\n",
		"state with parent": "state,1,X,9\n",
		"orphan district":   "district,1,X,\n",
		"empty name":        "block,1, ,2\n",
		"short record":      "block,1,X\n",
	} {
		_, err := s.Import(context.Background(), strings.NewReader(in))
		assert.ErrorIsf(t, err, common.ErrorValidation, name)
	}
}

func TestDirectory_Import_RollsBack(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	s := NewDirectoryService(db, &fakeRepoManager{l: &fakeLocationsRepo{upsertErr: errBoom{}}})

	_, err := s.Import(context.Background(), strings.NewReader("state,23,MP,\n"))
	require.ErrorContains(t, err, "boom")
	require.NoError(t, mock.ExpectationsWereMet())
}
