package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/gatherer/internal/client/client"
	"github.com/dmitrijs2005/gatherer/internal/client/models"
	"github.com/dmitrijs2005/gatherer/internal/client/repositories/cacheindex"
	"github.com/dmitrijs2005/gatherer/internal/common"
	"github.com/dmitrijs2005/gatherer/internal/filex"
	"github.com/dmitrijs2005/gatherer/internal/hashx"
	"github.com/dmitrijs2005/gatherer/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	bucket      = "gatherer"
	testTimeout = 5 * time.Second
	tick        = 10 * time.Millisecond
)

// fakeStorage is a tiny S3 stand-in: GET /<bucket>/<key> serves objects and
// POST /<bucket> accepts browser-style multipart uploads.
type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	forms   []map[string]string

	downloads atomic.Int32
	gate      chan struct{}

	rejectStatus int
	rejectBody   string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (s *fakeStorage) put(key string, b []byte) {
	s.mu.Lock()
	s.objects[key] = b
	s.mu.Unlock()
}

func (s *fakeStorage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	prefix := "/" + bucket
	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, prefix+"/"):
		s.downloads.Add(1)
		if s.gate != nil {
			<-s.gate
		}
		s.mu.Lock()
		b, ok := s.objects[strings.TrimPrefix(r.URL.Path, prefix+"/")]
		s.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		_, _ = w.Write(b)

	case r.Method == http.MethodPost && r.URL.Path == prefix:
		if s.rejectStatus != 0 {
			w.WriteHeader(s.rejectStatus)
			_, _ = io.WriteString(w, s.rejectBody)
			return
		}
		mr, err := r.MultipartReader()
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fields := map[string]string{}
		var data []byte
		var last, fileName string
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			b, _ := io.ReadAll(p)
			if p.FormName() == "file" {
				data, fileName = b, p.FileName()
			} else {
				fields[p.FormName()] = string(b)
			}
			last = p.FormName()
		}
		if last != "file" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `<Error><Code>InvalidArgument</Code><Message>file must be the last field</Message></Error>`)
			return
		}
		s.put(strings.ReplaceAll(fields["key"], "${filename}", fileName), data)
		s.mu.Lock()
		s.forms = append(s.forms, fields)
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// fakeSigner maps s3://bucket/key locators onto the fake storage.
type fakeSigner struct {
	base string

	downloadSigns atomic.Int32
	uploadSigns   atomic.Int32

	downloadErr error
	uploadErr   error
}

func (f *fakeSigner) SignDownload(ctx context.Context, locator string) (string, error) {
	f.downloadSigns.Add(1)
	if f.downloadErr != nil {
		return "", f.downloadErr
	}
	return f.base + "/" + strings.TrimPrefix(locator, "s3://"), nil
}

func (f *fakeSigner) SignUpload(ctx context.Context, req client.UploadRequest) (*client.SignedUpload, error) {
	n := f.uploadSigns.Add(1)
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &client.SignedUpload{
		URL: f.base + "/" + bucket,
		Fields: map[string]string{
			"key":                   fmt.Sprintf("uploads/%d/${filename}", n),
			"policy":                "eyJjb25kaXRpb25zIjpbXX0=",
			common.ContentHashField: req.Hash,
			"Content-Type":          req.ContentType,
			"x-amz-signature":       "sig",
			"x-amz-algorithm":       "AWS4-HMAC-SHA256",
			"x-amz-credential":      "minio/20260101/us-east-1/s3/aws4_request",
			"x-amz-date":            "20260101T000000Z",
		},
	}, nil
}

type harness struct {
	cache   *Cache
	db      *sql.DB
	storage *fakeStorage
	signer  *fakeSigner
	dir     string
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	st := newFakeStorage()
	ts := httptest.NewServer(st)
	t.Cleanup(ts.Close)

	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "gatherer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	signer := &fakeSigner{base: ts.URL}
	dir := filepath.Join(t.TempDir(), "assets")

	opts = append([]Option{WithHTTPClient(ts.Client())}, opts...)
	c, err := New(signer, cacheindex.NewSQLiteRepository(db), dir, logging.Discard(), opts...)
	require.NoError(t, err)

	return &harness{cache: c, db: db, storage: st, signer: signer, dir: dir}
}

func (h *harness) remote(t *testing.T, id int64, key string, data []byte) models.RemoteAsset {
	t.Helper()
	h.storage.put(key, data)
	sum, err := hashx.Default().Sum(data)
	require.NoError(t, err)
	return models.RemoteAsset{ID: id, URL: "s3://" + bucket + "/" + key, Hash: sum}
}

func (h *harness) indexRows(t *testing.T, id int64) int {
	t.Helper()
	var n int
	require.NoError(t, h.db.QueryRow(`SELECT count(*) FROM asset_cache WHERE asset_id=?`, id).Scan(&n))
	return n
}

func readURI(t *testing.T, uri string) []byte {
	t.Helper()
	p, err := filex.PathFromFileURI(uri)
	require.NoError(t, err)
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	return b
}

func TestResolve_FileURIUnchanged(t *testing.T) {
	h := newHarness(t)

	in := models.RemoteAsset{ID: 1, URL: "file:///sdcard/DCIM/farmer.jpg", Hash: "whatever"}
	got, err := h.cache.Resolve(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in.URL, got)
	assert.Zero(t, h.signer.downloadSigns.Load())
	assert.Zero(t, h.storage.downloads.Load())
	assert.Zero(t, h.indexRows(t, 1))
}

func TestResolve_DownloadsVerifiesAndIndexes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	data := []byte("land parcel 17 photo")
	asset := h.remote(t, 42, "records/land/17.JPG", data)

	uri, err := h.cache.Resolve(ctx, asset)
	require.NoError(t, err)
	assert.True(t, filex.IsFileURI(uri))
	assert.Equal(t, data, readURI(t, uri))
	assert.True(t, strings.HasSuffix(uri, "/42.jpg"), uri)

	e, err := cacheindex.NewSQLiteRepository(h.db).Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, asset.Hash, e.Hash)

	sum, err := hashx.Default().SumFile(e.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, asset.Hash, sum)

	again, err := h.cache.Resolve(ctx, asset)
	require.NoError(t, err)
	assert.Equal(t, uri, again)
	assert.Equal(t, int32(1), h.storage.downloads.Load(), "hit must not download")
	assert.Equal(t, int32(1), h.signer.downloadSigns.Load())
}

func TestResolve_UppercaseHashAccepted(t *testing.T) {
	h := newHarness(t)
	asset := h.remote(t, 5, "a/5.png", []byte("five"))
	asset.Hash = strings.ToUpper(asset.Hash)

	_, err := h.cache.Resolve(context.Background(), asset)
	require.NoError(t, err)
}

func TestResolve_HashLengthFollowsAsset(t *testing.T) {
	h := newHarness(t)
	data := []byte("beneficiary id card")
	h.storage.put("docs/card.pdf", data)
	sum, err := hashx.Hasher{Algorithm: hashx.SHA3, Bits: 256}.Sum(data)
	require.NoError(t, err)
	require.Len(t, sum, 64)

	uri, err := h.cache.Resolve(context.Background(), models.RemoteAsset{ID: 9, URL: "s3://gatherer/docs/card.pdf", Hash: sum})
	require.NoError(t, err)
	assert.Equal(t, data, readURI(t, uri))
}

func TestResolve_HashMismatch(t *testing.T) {
	h := newHarness(t)
	asset := h.remote(t, 7, "records/7.jpg", []byte("original"))
	h.storage.put("records/7.jpg", []byte("tampered"))

	_, err := h.cache.Resolve(context.Background(), asset)
	require.Error(t, err)

	var ie *IntegrityError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, int64(7), ie.AssetID)
	assert.NotEqual(t, ie.Expected, ie.Actual)
	assert.ErrorIs(t, err, common.ErrIntegrity)

	assert.Zero(t, h.indexRows(t, 7))
	files, err := os.ReadDir(h.dir)
	require.NoError(t, err)
	assert.Empty(t, files, "nothing may be left on disk")
}

func TestResolve_RacingCallsDownloadOnce(t *testing.T) {
	h := newHarness(t)
	h.storage.gate = make(chan struct{})
	asset := h.remote(t, 11, "records/11.jpg", []byte("eleven"))

	const n = 10
	var wg sync.WaitGroup
	uris := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uris[i], errs[i] = h.cache.Resolve(context.Background(), asset)
		}(i)
	}

	require.Eventually(t, func() bool { return h.storage.downloads.Load() == 1 }, testTimeout, tick)
	close(h.storage.gate)
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, uris[0], uris[i])
	}
	assert.Equal(t, int32(1), h.storage.downloads.Load())
	assert.Equal(t, 1, h.indexRows(t, 11))
}

func TestResolve_CancelledCallerDoesNotFailOthers(t *testing.T) {
	h := newHarness(t)
	h.storage.gate = make(chan struct{})
	asset := h.remote(t, 15, "records/15.jpg", []byte("fifteen"))

	first, cancel := context.WithCancel(context.Background())
	defer cancel()
	firstErr := make(chan error, 1)
	go func() {
		_, err := h.cache.Resolve(first, asset)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return h.storage.downloads.Load() == 1 }, testTimeout, tick)

	var (
		wg        sync.WaitGroup
		secondURI string
		secondErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		secondURI, secondErr = h.cache.Resolve(context.Background(), asset)
	}()

	cancel()
	select {
	case err := <-firstErr:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(testTimeout):
		t.Fatal("cancelled caller did not return")
	}

	close(h.storage.gate)
	wg.Wait()

	require.NoError(t, secondErr)
	assert.Equal(t, []byte("fifteen"), readURI(t, secondURI))
	assert.Equal(t, int32(1), h.storage.downloads.Load())
	assert.Equal(t, 1, h.indexRows(t, 15))
}

func TestResolve_SharedWorkOutlivesCaller(t *testing.T) {
	h := newHarness(t)
	h.storage.gate = make(chan struct{})
	asset := h.remote(t, 16, "records/16.jpg", []byte("sixteen"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := h.cache.Resolve(ctx, asset)
		done <- err
	}()
	require.Eventually(t, func() bool { return h.storage.downloads.Load() == 1 }, testTimeout, tick)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	close(h.storage.gate)
	require.Eventually(t, func() bool { return h.indexRows(t, 16) == 1 }, testTimeout, tick)

	uri, err := h.cache.Resolve(context.Background(), asset)
	require.NoError(t, err)
	assert.Equal(t, []byte("sixteen"), readURI(t, uri))
	assert.Equal(t, int32(1), h.storage.downloads.Load())
}

func TestResolve_UncheckableHashFailsBeforeDownload(t *testing.T) {
	for name, hash := range map[string]string{
		"empty":      "",
		"sha1 sized": strings.Repeat("ab", 20),
		"100 chars":  strings.Repeat("c", 100),
		"not hex":    strings.Repeat("g", 128),
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			h.storage.put("records/17.jpg", []byte("seventeen"))

			_, err := h.cache.Resolve(context.Background(), models.RemoteAsset{ID: 17, URL: "s3://gatherer/records/17.jpg", Hash: hash})

			var ie *IntegrityError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, int64(17), ie.AssetID)
			assert.Equal(t, hash, ie.Expected)
			assert.ErrorIs(t, err, common.ErrIntegrity)
			assert.ErrorIs(t, err, hashx.ErrUnsupported)

			assert.Zero(t, h.signer.downloadSigns.Load())
			assert.Zero(t, h.storage.downloads.Load())
			assert.Zero(t, h.indexRows(t, 17))
		})
	}
}

func TestResolve_SignFailureIsTransport(t *testing.T) {
	h := newHarness(t)
	h.signer.downloadErr = fmt.Errorf("refresh token: %w", client.ErrUnauthorized)
	asset := h.remote(t, 3, "r/3.jpg", []byte("three"))

	_, err := h.cache.Resolve(context.Background(), asset)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "sign download", te.Op)
	assert.ErrorIs(t, err, common.ErrTransport)
	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Zero(t, h.indexRows(t, 3))
}

func TestResolve_MissingObjectIsTransport(t *testing.T) {
	h := newHarness(t)

	_, err := h.cache.Resolve(context.Background(), models.RemoteAsset{ID: 4, URL: "s3://gatherer/none.jpg", Hash: strings.Repeat("a", 128)})
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "download", te.Op)
	assert.Zero(t, h.indexRows(t, 4))
}

func TestResolve_MissingIndexedFileIsRefetched(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	asset := h.remote(t, 12, "r/12.jpg", []byte("twelve"))

	uri, err := h.cache.Resolve(ctx, asset)
	require.NoError(t, err)
	p, err := filex.PathFromFileURI(uri)
	require.NoError(t, err)
	require.NoError(t, os.Remove(p))

	uri2, err := h.cache.Resolve(ctx, asset)
	require.NoError(t, err)
	assert.Equal(t, uri, uri2)
	assert.Equal(t, []byte("twelve"), readURI(t, uri2))
	assert.Equal(t, int32(2), h.storage.downloads.Load())
	assert.Equal(t, 1, h.indexRows(t, 12))
}

func TestResolve_TrustOnceByDefault(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	asset := h.remote(t, 13, "r/13.jpg", []byte("thirteen"))

	uri, err := h.cache.Resolve(ctx, asset)
	require.NoError(t, err)
	p, _ := filex.PathFromFileURI(uri)
	require.NoError(t, os.WriteFile(p, []byte("edited on device"), 0o640))

	_, err = h.cache.Resolve(ctx, asset)
	require.NoError(t, err)
	assert.Equal(t, []byte("edited on device"), readURI(t, uri))
	assert.Equal(t, int32(1), h.storage.downloads.Load())
}

func TestResolve_VerifyOnHitRefetchesChangedFile(t *testing.T) {
	h := newHarness(t, WithVerifyOnHit(true))
	ctx := context.Background()
	asset := h.remote(t, 14, "r/14.jpg", []byte("fourteen"))

	uri, err := h.cache.Resolve(ctx, asset)
	require.NoError(t, err)

	_, err = h.cache.Resolve(ctx, asset)
	require.NoError(t, err)
	assert.Equal(t, int32(1), h.storage.downloads.Load(), "intact file is a hit")

	p, _ := filex.PathFromFileURI(uri)
	require.NoError(t, os.WriteFile(p, []byte("edited on device"), 0o640))

	_, err = h.cache.Resolve(ctx, asset)
	require.NoError(t, err)
	assert.Equal(t, []byte("fourteen"), readURI(t, uri))
	assert.Equal(t, int32(2), h.storage.downloads.Load())
}

func TestRemoveAndEntries(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.remote(t, 21, "r/21.jpg", []byte("a"))
	b := h.remote(t, 20, "r/20.jpg", []byte("b"))

	ua, err := h.cache.Resolve(ctx, a)
	require.NoError(t, err)
	_, err = h.cache.Resolve(ctx, b)
	require.NoError(t, err)

	entries, err := h.cache.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(20), entries[0].AssetID)

	require.NoError(t, h.cache.Remove(ctx, 21))
	p, _ := filex.PathFromFileURI(ua)
	_, err = os.Stat(p)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Zero(t, h.indexRows(t, 21))

	require.ErrorIs(t, h.cache.Remove(ctx, 21), common.ErrorNotFound)
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"s3://gatherer/a/b/photo.JPG":       ".jpg",
		"s3://gatherer/a/b/doc.pdf":         ".pdf",
		"s3://gatherer/a/b/noext":           "",
		"s3://gatherer/a/b/x.tar.gz":        ".gz",
		"s3://gatherer/a/b/odd.we ird":      "",
		"s3://gatherer/a/b/long.abcdefghij": "",
		"s3://gatherer/a/b/plot#3.JPG":      ".jpg",
		"s3://gatherer/a/b/scan?.pdf":       ".pdf",
		"s3://gatherer/a/b/100%.jpg":        ".jpg",
		"s3://gatherer/a/b/my photo.jpg":    ".jpg",
		"https://cdn.example.org/a.png?x=1": ".png",
	}
	for in, want := range tests {
		assert.Equal(t, want, extension(in), in)
	}
}
