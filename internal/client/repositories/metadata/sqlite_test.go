package metadata

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/gatherer/internal/client/client"
	"github.com/dmitrijs2005/gatherer/internal/client/models"
	"github.com/dmitrijs2005/gatherer/internal/common"
	"github.com/dmitrijs2005/gatherer/internal/dbx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "gatherer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPutAndGet_Username(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, KeyUsername, []byte("surveyor")))

	v, err := r.Get(ctx, KeyUsername)
	require.NoError(t, err)
	assert.Equal(t, []byte("surveyor"), v)
}

func TestGet_MissingKeyIsNotFound(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	_, err := r.Get(context.Background(), KeyTokens)
	require.ErrorIs(t, err, common.ErrorNotFound)
	assert.ErrorContains(t, err, "auth.tokens")
}

func TestPut_RotatedTokensReplaceOld(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, SaveJSON(ctx, r, KeyTokens, client.Tokens{AccessToken: "a1", RefreshToken: "r1"}))
	require.NoError(t, SaveJSON(ctx, r, KeyTokens, client.Tokens{AccessToken: "a2", RefreshToken: "r2"}))

	var got client.Tokens
	found, err := LoadJSON(ctx, r, KeyTokens, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, client.Tokens{AccessToken: "a2", RefreshToken: "r2"}, got)
}

func TestPut_EmptyKeyRejected(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	require.ErrorIs(t, r.Put(context.Background(), "", []byte("x")), common.ErrorValidation)
}

func TestPut_NilValueStoredEmpty(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, KeyUsername, nil))
	v, err := r.Get(ctx, KeyUsername)
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestSelectionRoundTrip(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	var sel models.Selection
	found, err := LoadJSON(ctx, r, KeySelection, &sel)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, models.Selection{}, sel)

	want := models.Selection{StateCodes: []int64{23}, DistrictCodes: []int64{101, 103}, BlockCodes: []int64{1001}}
	require.NoError(t, SaveJSON(ctx, r, KeySelection, want))

	found, err = LoadJSON(ctx, r, KeySelection, &sel)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, sel)
}

func TestLoadJSON_CorruptSelection(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, KeySelection, []byte(`{"stateCodes":[23`)))

	var sel models.Selection
	_, err := LoadJSON(ctx, r, KeySelection, &sel)
	require.ErrorContains(t, err, "decode filter.selection")
}

func TestDelete_SelectionLeavesSession(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, KeyUsername, []byte("surveyor")))
	require.NoError(t, r.Put(ctx, KeySelection, []byte(`{}`)))

	require.NoError(t, r.Delete(ctx, KeySelection))
	require.NoError(t, r.Delete(ctx, KeySelection), "deleting twice is fine")

	_, err := r.Get(ctx, KeySelection)
	require.ErrorIs(t, err, common.ErrorNotFound)
	_, err = r.Get(ctx, KeyUsername)
	require.NoError(t, err)
}

func TestDeleteNamespace_ClearsSessionKeepsFilter(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, KeyUsername, []byte("surveyor")))
	require.NoError(t, r.Put(ctx, KeyTokens, []byte(`{}`)))
	require.NoError(t, r.Put(ctx, KeySelection, []byte(`{}`)))
	require.NoError(t, r.Put(ctx, "authx.other", []byte("kept")))

	n, err := r.DeleteNamespace(ctx, AuthNamespace)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for _, k := range []Key{KeyUsername, KeyTokens} {
		_, err := r.Get(ctx, k)
		require.ErrorIs(t, err, common.ErrorNotFound, k)
	}
	for _, k := range []Key{KeySelection, "authx.other"} {
		_, err := r.Get(ctx, k)
		require.NoError(t, err, k)
	}
}

func TestDeleteNamespace_WildcardsAreLiteral(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, "auth.tokens", []byte("t")))
	require.NoError(t, r.Put(ctx, "a_th.x", []byte("x")))

	n, err := r.DeleteNamespace(ctx, "a_th.")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = r.Get(ctx, "auth.tokens")
	require.NoError(t, err)

	n, err = r.DeleteNamespace(ctx, "%")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = r.DeleteNamespace(ctx, "")
	require.ErrorIs(t, err, common.ErrorValidation)
}

func TestLoginWriteRolledBack(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewSQLiteRepository(tx)
		require.NoError(t, repo.Put(ctx, KeyUsername, []byte("surveyor")))
		require.NoError(t, SaveJSON(ctx, repo, KeyTokens, client.Tokens{AccessToken: "a", RefreshToken: "r"}))
		return common.ErrorInternal
	})
	require.ErrorIs(t, err, common.ErrorInternal)

	n, err := NewSQLiteRepository(db).DeleteNamespace(ctx, AuthNamespace)
	require.NoError(t, err)
	assert.Zero(t, n, "nothing from the failed login may persist")
}

func TestErrorsWrapped_ClosedDB(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.Get(ctx, KeyTokens)
	require.ErrorContains(t, err, "read auth.tokens")
	assert.NotErrorIs(t, err, common.ErrorNotFound)

	require.ErrorContains(t, r.Put(ctx, KeyTokens, []byte("{}")), "write auth.tokens")
	require.ErrorContains(t, r.Delete(ctx, KeySelection), "delete filter.selection")

	_, err = r.DeleteNamespace(ctx, AuthNamespace)
	require.ErrorContains(t, err, "delete namespace auth.")

	_, err = LoadJSON(ctx, r, KeySelection, &models.Selection{})
	require.ErrorContains(t, err, "read filter.selection")
}
