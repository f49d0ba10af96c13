// Package storage signs direct-to-bucket uploads and downloads. Uploads are
// S3 POST policies so the bucket itself enforces the content-hash tag;
// downloads are presigned GETs.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/gatherer/internal/common"
	"github.com/dmitrijs2005/gatherer/internal/server/models"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPostObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignPostOptions)) (*s3.PresignedPostRequest, error) {
		return pc.PresignPostObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// Options configures a Presigner. AccessKey/SecretKey are static
// credentials (MinIO root user/password in development).
type Options struct {
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string
	Bucket    string
	Expiry    time.Duration
}

type Presigner struct {
	client *s3.PresignClient
	bucket string
	expiry time.Duration
}

// NewPresigner builds a path-style S3 presign client for opts.Bucket.
func NewPresigner(ctx context.Context, opts Options) (*Presigner, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("storage: empty bucket name")
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey,
			opts.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = true
	})

	expiry := opts.Expiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}

	return &Presigner{client: newS3PresignClient(client), bucket: opts.Bucket, expiry: expiry}, nil
}

func (p *Presigner) Bucket() string { return p.bucket }

// PresignUpload returns a POST target for key. The policy pins the key, the
// content type and the content-hash metadata, so a form carrying any other
// hash is refused by the bucket.
func (p *Presigner) PresignUpload(ctx context.Context, key, contentType, hash string) (*models.UploadTarget, error) {
	conditions := []interface{}{
		map[string]string{common.ContentHashField: hash},
	}
	if contentType != "" {
		conditions = append(conditions, map[string]string{"Content-Type": contentType})
	}

	req, err := presignPostObject(p.client, ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignPostOptions) {
		o.Expires = p.expiry
		o.Conditions = conditions
	})
	if err != nil {
		return nil, fmt.Errorf("presign post: %w", err)
	}

	fields := make(map[string]string, len(req.Values)+2)
	for k, v := range req.Values {
		fields[k] = v
	}
	fields["key"] = key
	fields[common.ContentHashField] = hash
	if contentType != "" {
		fields["Content-Type"] = contentType
	}

	return &models.UploadTarget{URL: req.URL, Fields: fields}, nil
}

func (p *Presigner) PresignDownload(ctx context.Context, key string) (string, error) {
	req, err := presignGetObject(p.client, ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(p.expiry))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}

// Locator is the canonical s3://bucket/key reference of key.
func (p *Presigner) Locator(key string) string {
	return common.StorageScheme + "://" + p.bucket + "/" + key
}

// ObjectKey extracts the key from an s3://bucket/key locator. Locators of
// other schemes or buckets wrap common.ErrUnsupportedURL.
func (p *Presigner) ObjectKey(locator string) (string, error) {
	bucket, key, err := ParseLocator(locator)
	if err != nil {
		return "", err
	}
	if bucket != p.bucket {
		return "", fmt.Errorf("%w: foreign bucket %q", common.ErrUnsupportedURL, bucket)
	}
	return key, nil
}

// ParseLocator splits s3://bucket/key. The key is taken verbatim, so
// names holding '#', '?', '%' or spaces come back exactly as stored.
func ParseLocator(locator string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(locator, common.StorageScheme+"://")
	if !ok {
		return "", "", fmt.Errorf("%w: not an %s locator: %q", common.ErrUnsupportedURL, common.StorageScheme, locator)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	key = strings.TrimLeft(key, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q", common.ErrUnsupportedURL, locator)
	}
	return bucket, key, nil
}
