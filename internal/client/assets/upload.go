package assets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"

	"github.com/dmitrijs2005/gatherer/internal/client/client"
	"github.com/dmitrijs2005/gatherer/internal/client/models"
	"github.com/dmitrijs2005/gatherer/internal/common"
	"github.com/dmitrijs2005/gatherer/internal/netx"
	"golang.org/x/sync/errgroup"
)

const uploadFailed = "upload failed"

// Upload pushes every non-nil file to storage and returns, per field key,
// the canonical locator and the caller's hash. nil files are skipped and
// absent from the result. The first failure cancels the rest of the batch.
func (c *Cache) Upload(ctx context.Context, files map[string]*models.LocalFile) (map[string]models.UploadedAsset, error) {
	keys := make([]string, 0, len(files))
	for k, f := range files {
		if f != nil {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make(map[string]models.UploadedAsset, len(keys))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, key := range keys {
		f := files[key]
		g.Go(func() error {
			ua, err := c.uploadOne(gctx, f)
			if err != nil {
				c.log.Warn(gctx, "upload failed", "field", key, "file", f.FileName, "error", err)
				return err
			}
			mu.Lock()
			out[key] = ua
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Cache) uploadOne(ctx context.Context, f *models.LocalFile) (models.UploadedAsset, error) {
	signed, err := c.signer.SignUpload(ctx, client.UploadRequest{
		FileName:    f.FileName,
		ContentType: f.MimeType,
		Hash:        f.Hash,
	})
	if err != nil {
		return models.UploadedAsset{}, classify("sign upload", err)
	}

	file, err := os.Open(f.LocalPath)
	if err != nil {
		return models.UploadedAsset{}, fmt.Errorf("open %s: %w", f.LocalPath, err)
	}
	defer file.Close()

	if err := netx.PostToPresignedURL(ctx, c.hc, signed.URL, signed.Fields, f.FileName, f.MimeType, file); err != nil {
		return models.UploadedAsset{}, classify("upload", err)
	}

	locator, err := Locator(signed.URL, signed.Fields, f.FileName)
	if err != nil {
		return models.UploadedAsset{}, err
	}

	c.log.Debug(ctx, "asset uploaded", "file", f.FileName, "url", locator)
	return models.UploadedAsset{URL: locator, Hash: f.Hash}, nil
}

// classify turns backend and storage rejections into *ValidationError and
// everything else into *TransportError.
func classify(op string, err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && errors.Is(apiErr, common.ErrorValidation) {
		return &ValidationError{Message: apiErr.Payload.Display(uploadFailed), Payload: apiErr.Payload}
	}

	var se *netx.StatusError
	if errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500 &&
		se.StatusCode != http.StatusUnauthorized && se.StatusCode != http.StatusForbidden {
		p := client.DecodeErrorPayload(se.Body)
		return &ValidationError{Message: p.Display(uploadFailed), Payload: p}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}
