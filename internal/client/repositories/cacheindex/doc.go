// Package cacheindex persists the mapping from a remote asset id to the
// local file holding its verified bytes.
//
// # Overview
//
// The package defines a Repository interface used by the asset cache and a
// SQLite-backed implementation (SQLiteRepository) over dbx.DBTX, so it can
// run against *sql.DB or inside a *sql.Tx. Rows live in the asset_cache
// table created by internal/client/migrations.
//
// An entry is written only after the downloaded bytes matched the asset's
// content hash. Entries are never evicted automatically; Delete is the only
// way one goes away.
//
// Typical Usage
//
//	repo := cacheindex.NewSQLiteRepository(db)
//	_ = repo.Put(ctx, models.CacheEntry{AssetID: 7, LocalPath: p, Hash: h})
//	e, err := repo.Get(ctx, 7) // common.ErrorNotFound when absent
//	all, _ := repo.List(ctx)
//	_ = repo.Delete(ctx, 7)
package cacheindex
