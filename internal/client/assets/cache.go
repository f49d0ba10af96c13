package assets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gatherer/internal/client/client"
	"github.com/dmitrijs2005/gatherer/internal/client/models"
	"github.com/dmitrijs2005/gatherer/internal/client/repositories/cacheindex"
	"github.com/dmitrijs2005/gatherer/internal/common"
	"github.com/dmitrijs2005/gatherer/internal/filex"
	"github.com/dmitrijs2005/gatherer/internal/hashx"
	"github.com/dmitrijs2005/gatherer/internal/logging"
	"github.com/dmitrijs2005/gatherer/internal/netx"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultUploadConcurrency bounds parallel uploads within one batch.
	DefaultUploadConcurrency = 4
	// DefaultResolveTimeout bounds one shared sign, download and store.
	DefaultResolveTimeout = 5 * time.Minute
)

// Signer issues short-lived storage targets. *client.HTTPClient satisfies it.
type Signer interface {
	SignDownload(ctx context.Context, locator string) (string, error)
	SignUpload(ctx context.Context, req client.UploadRequest) (*client.SignedUpload, error)
}

// Cache resolves remote assets to verified local files and uploads new ones.
type Cache struct {
	signer Signer
	index  cacheindex.Repository
	dir    string
	log    logging.Logger

	hasher      hashx.Hasher
	hc          *http.Client
	concurrency int
	verifyOnHit bool
	timeout     time.Duration

	inflight singleflight.Group
}

type Option func(*Cache)

// WithHasher sets the algorithm used to verify downloads. The digest length
// always follows the asset's own hash.
func WithHasher(h hashx.Hasher) Option {
	return func(c *Cache) { c.hasher = h }
}

// WithHTTPClient sets the client used against signed storage URLs.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Cache) { c.hc = hc }
}

// WithUploadConcurrency caps parallel uploads; n < 1 means one at a time.
func WithUploadConcurrency(n int) Option {
	return func(c *Cache) {
		if n < 1 {
			n = 1
		}
		c.concurrency = n
	}
}

// WithResolveTimeout bounds the work shared by concurrent Resolve calls,
// which runs independently of any single caller's context.
func WithResolveTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithVerifyOnHit makes Resolve re-hash indexed files before returning them.
// A file that no longer matches is dropped and fetched again.
func WithVerifyOnHit(v bool) Option {
	return func(c *Cache) { c.verifyOnHit = v }
}

// New returns a Cache storing files under dir, which is created if needed.
func New(signer Signer, index cacheindex.Repository, dir string, log logging.Logger, opts ...Option) (*Cache, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cache dir: %w", err)
	}

	c := &Cache{
		signer:      signer,
		index:       index,
		dir:         abs,
		log:         log,
		hasher:      hashx.Default(),
		hc:          &http.Client{Timeout: 2 * time.Minute},
		concurrency: DefaultUploadConcurrency,
		timeout:     DefaultResolveTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Dir is the absolute cache directory.
func (c *Cache) Dir() string { return c.dir }

// Resolve returns a file:// URI holding the verified bytes of asset.
//
// A file:// URL is returned as is. An indexed asset is returned from disk.
// Anything else is downloaded through a signed URL, checked against
// asset.Hash and only then written and indexed. Concurrent calls for the
// same id share one download; a caller that gives up does not cancel it
// for the others.
func (c *Cache) Resolve(ctx context.Context, asset models.RemoteAsset) (string, error) {
	if filex.IsFileURI(asset.URL) {
		return asset.URL, nil
	}
	if err := c.hasher.CheckHex(asset.Hash); err != nil {
		return "", &IntegrityError{AssetID: asset.ID, Expected: asset.Hash, Reason: err}
	}

	ch := c.inflight.DoChan(strconv.FormatInt(asset.ID, 10), func() (any, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.resolve(sctx, asset)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		if r.Shared {
			c.log.Debug(ctx, "resolve shared", "id", asset.ID)
		}
		return r.Val.(string), nil
	}
}

func (c *Cache) resolve(ctx context.Context, asset models.RemoteAsset) (string, error) {
	p, ok, err := c.lookup(ctx, asset)
	if err != nil {
		return "", err
	}
	if ok {
		return filex.ToFileURI(p), nil
	}
	return c.fetch(ctx, asset)
}

// lookup returns the indexed path for asset if it is still usable.
func (c *Cache) lookup(ctx context.Context, asset models.RemoteAsset) (string, bool, error) {
	e, err := c.index.Get(ctx, asset.ID)
	if errors.Is(err, common.ErrorNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup asset %d: %w", asset.ID, err)
	}

	if !c.verifyOnHit {
		if _, err := os.Stat(e.LocalPath); err == nil {
			c.log.Debug(ctx, "cache hit", "id", asset.ID)
			return e.LocalPath, true, nil
		}
		c.log.Warn(ctx, "indexed file missing, refetching", "id", asset.ID, "path", e.LocalPath)
		return "", false, c.drop(ctx, e)
	}

	data, err := os.ReadFile(e.LocalPath)
	if err != nil {
		c.log.Warn(ctx, "indexed file unreadable, refetching", "id", asset.ID, "path", e.LocalPath, "error", err)
		return "", false, c.drop(ctx, e)
	}
	actual, match, err := c.hasher.Verify(asset.Hash, data)
	if err != nil {
		return "", false, fmt.Errorf("verify asset %d: %w", asset.ID, err)
	}
	if !match {
		c.log.Warn(ctx, "cached file changed, refetching", "id", asset.ID, "expected", asset.Hash, "actual", actual)
		return "", false, c.drop(ctx, e)
	}
	return e.LocalPath, true, nil
}

func (c *Cache) fetch(ctx context.Context, asset models.RemoteAsset) (string, error) {
	signed, err := c.signer.SignDownload(ctx, asset.URL)
	if err != nil {
		return "", &TransportError{Op: "sign download", Err: err}
	}

	data, err := netx.DownloadFromPresignedURL(ctx, c.hc, signed)
	if err != nil {
		return "", &TransportError{Op: "download", Err: err}
	}

	actual, match, err := c.hasher.Verify(asset.Hash, data)
	if err != nil {
		return "", fmt.Errorf("verify asset %d: %w", asset.ID, err)
	}
	if !match {
		c.log.Warn(ctx, "hash mismatch", "id", asset.ID, "expected", asset.Hash, "actual", actual)
		return "", &IntegrityError{AssetID: asset.ID, Expected: asset.Hash, Actual: actual}
	}

	p := filepath.Join(c.dir, strconv.FormatInt(asset.ID, 10)+extension(asset.URL))
	if err := filex.WriteFileAtomic(p, data, 0o640); err != nil {
		return "", fmt.Errorf("store asset %d: %w", asset.ID, err)
	}

	entry := models.CacheEntry{AssetID: asset.ID, LocalPath: p, Hash: strings.ToLower(asset.Hash)}
	if err := c.index.Put(ctx, entry); err != nil {
		_ = os.Remove(p)
		return "", fmt.Errorf("index asset %d: %w", asset.ID, err)
	}

	c.log.Debug(ctx, "asset cached", "id", asset.ID, "path", p, "bytes", len(data))
	return filex.ToFileURI(p), nil
}

func (c *Cache) drop(ctx context.Context, e *models.CacheEntry) error {
	if err := os.Remove(e.LocalPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", e.LocalPath, err)
	}
	if err := c.index.Delete(ctx, e.AssetID); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("unindex asset %d: %w", e.AssetID, err)
	}
	return nil
}

// Remove deletes the cached file and index entry for id. It returns
// common.ErrorNotFound if id is not cached.
func (c *Cache) Remove(ctx context.Context, id int64) error {
	e, err := c.index.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.drop(ctx, e)
}

// Entries lists everything in the index.
func (c *Cache) Entries(ctx context.Context) ([]models.CacheEntry, error) {
	return c.index.List(ctx)
}

var safeExt = regexp.MustCompile(`^\.[A-Za-z0-9]{1,8}$`)

// extension keeps a short, safe file extension from the locator so cached
// files open with the right viewer.
func extension(locator string) string {
	p, ok := strings.CutPrefix(locator, common.StorageScheme+"://")
	if !ok {
		if u, err := url.Parse(locator); err == nil {
			p = u.Path
		}
	}
	ext := path.Ext(p)
	if !safeExt.MatchString(ext) {
		return ""
	}
	return strings.ToLower(ext)
}
