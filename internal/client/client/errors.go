package client

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/dmitrijs2005/gatherer/internal/common"
)

var (
	ErrUnavailable           = errors.New("server unavailable")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrLocalDataNotAvailable = errors.New("local data unavailable")
)

// PayloadKind tags which shape an error payload had.
type PayloadKind int

const (
	PayloadUnknown PayloadKind = iota
	PayloadFieldErrors
	PayloadPlainMessage
)

// FieldError is one field-level validation message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorPayload is a backend or storage error body, decoded once at the HTTP
// boundary so callers never poke at ad hoc JSON shapes.
type ErrorPayload struct {
	Kind    PayloadKind
	Fields  []FieldError
	Message string
	Raw     []byte
}

// FirstFieldMessage returns the first field-level message, if any.
func (p ErrorPayload) FirstFieldMessage() (string, bool) {
	if p.Kind != PayloadFieldErrors || len(p.Fields) == 0 {
		return "", false
	}
	return p.Fields[0].Message, true
}

// Display picks the most specific human-readable text, or fallback.
func (p ErrorPayload) Display(fallback string) string {
	if m, ok := p.FirstFieldMessage(); ok {
		return m
	}
	if p.Kind == PayloadPlainMessage && p.Message != "" {
		return p.Message
	}
	return fallback
}

type s3Error struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

// DecodeErrorPayload recognises:
//
//	{"errors":[{"field":"file","message":"..."}]}
//	{"file":["duplicate content"],"name":"required"}
//	{"detail":"..."} / {"message":"..."} / {"error":"..."}
//	<Error><Code>..</Code><Message>..</Message></Error>   (S3)
//
// Anything else decodes as PayloadUnknown with Raw set.
func DecodeErrorPayload(body []byte) ErrorPayload {
	p := ErrorPayload{Kind: PayloadUnknown, Raw: body}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return p
	}

	if trimmed[0] == '<' {
		var e s3Error
		if err := xml.Unmarshal(trimmed, &e); err == nil && (e.Message != "" || e.Code != "") {
			p.Kind = PayloadPlainMessage
			p.Message = e.Message
			if p.Message == "" {
				p.Message = e.Code
			}
		}
		return p
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return p
	}

	if raw, ok := obj["errors"]; ok {
		var fields []FieldError
		if err := json.Unmarshal(raw, &fields); err == nil && len(fields) > 0 {
			p.Kind = PayloadFieldErrors
			p.Fields = fields
			return p
		}
	}

	for _, key := range []string{"detail", "message", "error"} {
		if raw, ok := obj[key]; ok {
			var s string
			if err := json.Unmarshal(raw, &s); err == nil && s != "" {
				p.Kind = PayloadPlainMessage
				p.Message = s
				return p
			}
		}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var fields []FieldError
	for _, k := range keys {
		var list []string
		if err := json.Unmarshal(obj[k], &list); err == nil {
			for _, m := range list {
				fields = append(fields, FieldError{Field: k, Message: m})
			}
			continue
		}
		var s string
		if err := json.Unmarshal(obj[k], &s); err == nil {
			fields = append(fields, FieldError{Field: k, Message: s})
		}
	}
	if len(fields) > 0 {
		p.Kind = PayloadFieldErrors
		p.Fields = fields
	}
	return p
}

// APIError is a non-2xx REST response. It unwraps to a sentinel chosen by
// status so callers can use errors.Is(err, ErrUnauthorized) and friends.
type APIError struct {
	StatusCode int
	Payload    ErrorPayload
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Payload.Display(http.StatusText(e.StatusCode)))
}

func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case e.StatusCode == http.StatusNotFound:
		return common.ErrorNotFound
	case e.StatusCode == http.StatusBadGateway, e.StatusCode == http.StatusServiceUnavailable,
		e.StatusCode == http.StatusGatewayTimeout:
		return ErrUnavailable
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return common.ErrorValidation
	default:
		return common.ErrorInternal
	}
}

// tokenExpired reports whether a 401 was caused by an expired access token
// (as opposed to bad credentials).
func (e *APIError) tokenExpired() bool {
	return e.StatusCode == http.StatusUnauthorized &&
		e.Payload.Kind == PayloadPlainMessage &&
		e.Payload.Message == common.ErrTokenExpired.Error()
}
