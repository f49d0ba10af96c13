package assets

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/gatherer/internal/common"
)

// filenameVar is the S3 POST placeholder replaced by the uploaded file name.
const filenameVar = "${filename}"

// Locator derives the canonical s3://bucket/key reference of an object
// uploaded to signedURL with the given form fields.
//
// The bucket comes from the "bucket" field when present, otherwise from the
// URL: the first path segment for path-style targets
// (https://minio:9000/gatherer), or the host prefix before ".s3" for
// virtual-hosted ones (https://gatherer.s3.eu-west-1.amazonaws.com).
func Locator(signedURL string, fields map[string]string, fileName string) (string, error) {
	key := strings.TrimLeft(fields["key"], "/")
	if key == "" {
		return "", fmt.Errorf("%w: signed upload has no key field", common.ErrUnsupportedURL)
	}
	key = strings.ReplaceAll(key, filenameVar, fileName)

	bucket := fields["bucket"]
	if bucket == "" {
		u, err := url.Parse(signedURL)
		if err != nil {
			return "", fmt.Errorf("%w: %v", common.ErrUnsupportedURL, err)
		}
		bucket = bucketFromURL(u)
	}
	if bucket == "" {
		return "", fmt.Errorf("%w: no bucket in %q", common.ErrUnsupportedURL, signedURL)
	}

	return common.StorageScheme + "://" + bucket + "/" + key, nil
}

func bucketFromURL(u *url.URL) string {
	if p := strings.Trim(u.Path, "/"); p != "" {
		first, _, _ := strings.Cut(p, "/")
		return first
	}

	host := u.Hostname()
	if i := strings.Index(host, ".s3"); i > 0 {
		return host[:i]
	}
	return ""
}
