// Package netx talks directly to object storage through pre-signed targets.
// These requests carry no bearer token: the signature is the credential.
package netx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sort"
)

// FileFieldName is the multipart field S3 expects the object bytes in.
// It must be the last part of the form.
const FileFieldName = "file"

// maxErrorBody caps how much of a failed response is kept for decoding.
const maxErrorBody = 64 << 10

// StatusError is returned for non-2xx responses from a signed target.
type StatusError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *StatusError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("storage request failed: %s", e.Status)
	}
	return fmt.Sprintf("storage request failed: %s; body: %s", e.Status, string(e.Body))
}

func newStatusError(resp *http.Response) *StatusError {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: b}
}

// BuildPostForm writes the signing fields (sorted by name) followed by the
// file part, and returns the body and its Content-Type.
func BuildPostForm(fields map[string]string, fileName, contentType string, file io.Reader) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := w.WriteField(name, fields[name]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", name, err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, FileFieldName, fileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("copy file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return body, w.FormDataContentType(), nil
}

// PostToPresignedURL uploads file to a pre-signed POST target.
func PostToPresignedURL(ctx context.Context, hc *http.Client, url string, fields map[string]string,
	fileName, contentType string, file io.Reader) error {

	body, formType, err := BuildPostForm(fields, fileName, contentType, file)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", formType)

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// DownloadFromPresignedURL fetches the full body of a pre-signed GET target.
func DownloadFromPresignedURL(ctx context.Context, hc *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError(resp)
	}

	return io.ReadAll(resp.Body)
}
