package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dmitrijs2005/gatherer/internal/common"
	"github.com/dmitrijs2005/gatherer/internal/server/models"
	"github.com/google/uuid"
)

// maxHashLen bounds the content hash accepted in an upload request; a
// 512-bit digest is 128 hex characters.
const maxHashLen = 256

// ObjectSigner is implemented by storage.Presigner.
type ObjectSigner interface {
	PresignUpload(ctx context.Context, key, contentType, hash string) (*models.UploadTarget, error)
	PresignDownload(ctx context.Context, key string) (string, error)
	ObjectKey(locator string) (string, error)
}

// StorageService signs uploads to and downloads from object storage.
type StorageService struct {
	signer ObjectSigner
	now    func() time.Time
	newID  func() string
}

func NewStorageService(signer ObjectSigner) *StorageService {
	return &StorageService{
		signer: signer,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// SignUpload validates the request and returns a POST target under a fresh
// uploads/<yyyy>/<mm>/<dd>/<uuid>/<fileName> key.
func (s *StorageService) SignUpload(ctx context.Context, fileName, contentType, hash string) (*models.UploadTarget, error) {
	name := cleanFileName(fileName)
	if name == "" {
		return nil, &FieldError{Field: "file_name", Message: "file name is required"}
	}
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, &FieldError{Field: "hash", Message: "content hash is required"}
	}
	if len(hash) > maxHashLen || strings.ContainsAny(hash, " \t\r\n") {
		return nil, &FieldError{Field: "hash", Message: "malformed content hash"}
	}

	key := s.objectKey(name)
	target, err := s.signer.PresignUpload(ctx, key, strings.TrimSpace(contentType), hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return target, nil
}

// SignDownload presigns a GET for an s3://bucket/key locator of this
// service's bucket.
func (s *StorageService) SignDownload(ctx context.Context, locator string) (string, error) {
	key, err := s.signer.ObjectKey(strings.TrimSpace(locator))
	if err != nil {
		return "", &FieldError{Field: "url", Message: err.Error()}
	}
	u, err := s.signer.PresignDownload(ctx, key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return u, nil
}

func (s *StorageService) objectKey(fileName string) string {
	d := s.now().UTC()
	return fmt.Sprintf("uploads/%04d/%02d/%02d/%s/%s", d.Year(), int(d.Month()), d.Day(), s.newID(), fileName)
}

// cleanFileName keeps the last path element of name, whichever separator
// the capturing device used.
func cleanFileName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}
