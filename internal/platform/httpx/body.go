package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// DefaultMaxBodyBytes caps JSON request bodies.
const DefaultMaxBodyBytes int64 = 1 << 20

var (
	// ErrBodyTooLarge reports a request body over the configured limit.
	ErrBodyTooLarge = errors.New("httpx: request body too large")
	// ErrInvalidJSON reports a body that is not a single JSON object.
	ErrInvalidJSON = errors.New("httpx: invalid json body")
)

// DecodeJSON reads at most limit bytes from the request and decodes them into dst.
// Unknown fields are rejected.
func DecodeJSON(r *http.Request, limit int64, dst any) error {
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > limit {
		return ErrBodyTooLarge
	}
	if len(body) == 0 {
		return fmt.Errorf("%w: empty body", ErrInvalidJSON)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", ErrInvalidJSON)
	}
	return nil
}

// BodyError converts a DecodeJSON failure into the API error envelope.
func BodyError(err error) Error {
	if errors.Is(err, ErrBodyTooLarge) {
		return NewError("payload_too_large", "request body too large", http.StatusRequestEntityTooLarge)
	}
	return NewError("invalid_request", err.Error(), http.StatusBadRequest)
}
