// Package models defines client-side data models used by the Gatherer field kit.
package models

import (
	"fmt"
	"mime"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/gatherer/internal/hashx"
)

// RemoteAsset references a file in object storage. It is immutable: a new
// photo gets a new RemoteAsset.
type RemoteAsset struct {
	// ID is assigned by the backend and unique per asset.
	ID int64 `json:"id"`

	// URL is an opaque storage locator, or a file:// reference when the
	// asset is already local.
	URL string `json:"url"`

	// Hash is the hex content hash computed at capture time.
	Hash string `json:"hash"`
}

// LocalFile is a captured file waiting to be uploaded.
type LocalFile struct {
	LocalPath string `json:"local_path"`
	MimeType  string `json:"mime_type"`
	FileName  string `json:"file_name"`
	Hash      string `json:"hash"`
}

// NewLocalFile describes the file at path, guessing the MIME type from the
// extension and hashing the contents with h.
func NewLocalFile(path string, h hashx.Hasher) (*LocalFile, error) {
	sum, err := h.SumFile(path)
	if err != nil {
		return nil, fmt.Errorf("hash %s: %w", path, err)
	}

	mt := mime.TypeByExtension(filepath.Ext(path))
	if mt == "" {
		mt = "application/octet-stream"
	}

	return &LocalFile{
		LocalPath: path,
		MimeType:  mt,
		FileName:  filepath.Base(path),
		Hash:      sum,
	}, nil
}

// UploadedAsset is what a record stores after a successful upload.
type UploadedAsset struct {
	URL  string `json:"url"`
	Hash string `json:"hash"`
}

// CacheEntry maps an asset id to previously verified local bytes.
type CacheEntry struct {
	AssetID   int64
	LocalPath string
	Hash      string
	CreatedAt time.Time
}
