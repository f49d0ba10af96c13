package models

// UploadTarget is a presigned multipart POST: the client posts Fields plus
// the file to URL.
type UploadTarget struct {
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
}
