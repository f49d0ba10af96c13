package client

import (
	"context"

	"github.com/dmitrijs2005/gatherer/internal/client/models"
)

// Tokens is a bearer access token and the refresh token that renews it.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// UploadRequest asks the backend for a signed upload target.
type UploadRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Hash        string `json:"hash"`
}

// SignedUpload is a pre-signed multipart POST target plus the form fields
// that must accompany the file.
type SignedUpload struct {
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
}

type Client interface {
	Close() error
	Ping(ctx context.Context) error
	Login(ctx context.Context, username string, password []byte) (Tokens, error)
	Logout(ctx context.Context) error
	Tokens() Tokens
	SetTokens(t Tokens)

	SignUpload(ctx context.Context, req UploadRequest) (*SignedUpload, error)
	SignDownload(ctx context.Context, locator string) (string, error)

	States(ctx context.Context) ([]models.LocationCode, error)
	Districts(ctx context.Context, stateCode int64) ([]models.LocationCode, error)
	Blocks(ctx context.Context, districtCode int64) ([]models.LocationCode, error)
	Villages(ctx context.Context, blockCode int64) ([]models.LocationCode, error)
}
