package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
)

func multipartUpload(t *testing.T, filename, contentType string, data []byte, path string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if filename != "" {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("CreatePart: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if path != "" {
		if err := writer.WriteField("path", path); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/images", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestImageUploadDownloadDelete(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, multipartUpload(t, "avatar.png", "image/png", []byte("png-bytes"), "user123/profile.png"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	uploaded := decodeBody[imageUploadResponse](t, rec)
	if uploaded.ObjectName != "user123/profile.png" || uploaded.ContentType != "image/png" || uploaded.Size != 9 {
		t.Fatalf("unexpected upload response %+v", uploaded)
	}
	if !strings.HasPrefix(uploaded.URL, "memory://images/user123/profile.png") {
		t.Fatalf("unexpected presigned url %q", uploaded.URL)
	}

	rec = srv.do(t, http.MethodGet, "/api/images/user123/profile.png", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("download: expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	if rec.Header().Get("Cache-Control") != "public, max-age=31536000" {
		t.Fatalf("unexpected cache control %q", rec.Header().Get("Cache-Control"))
	}
	if body, _ := io.ReadAll(rec.Body); string(body) != "png-bytes" {
		t.Fatalf("unexpected body %q", body)
	}

	rec = srv.do(t, http.MethodGet, "/api/images?prefix=user123/", nil, nil)
	listed := decodeBody[map[string][]imageListItem](t, rec)
	if len(listed["items"]) != 1 || listed["items"][0].ObjectName != "user123/profile.png" {
		t.Fatalf("unexpected listing %+v", listed)
	}

	rec = srv.do(t, http.MethodDelete, "/api/images/user123/profile.png", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	deleted := decodeBody[imageDeleteResponse](t, rec)
	if deleted.Message != "Image deleted successfully" || deleted.ObjectName != "user123/profile.png" {
		t.Fatalf("unexpected delete response %+v", deleted)
	}

	if _, _, err := srv.store.Download(context.Background(), "user123/profile.png"); err == nil {
		t.Fatalf("expected object removed from store")
	}
	rec = srv.do(t, http.MethodDelete, "/api/images/user123/profile.png", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 deleting twice, got %d", rec.Code)
	}
}

func TestImageUploadDefaultsObjectName(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, multipartUpload(t, "cat photo.jpg", "image/jpeg", []byte("jpg"), ""))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	uploaded := decodeBody[imageUploadResponse](t, rec)
	if !strings.HasPrefix(uploaded.ObjectName, "uploads/") {
		t.Fatalf("expected generated upload name, got %q", uploaded.ObjectName)
	}
}

func TestImageUploadRejections(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name    string
		req     *http.Request
		message string
	}{
		{name: "no file", req: multipartUpload(t, "", "", nil, "a.png"), message: "No file provided"},
		{name: "wrong type", req: multipartUpload(t, "notes.txt", "text/plain", []byte("hi"), ""), message: "Invalid file type"},
		{name: "too large", req: multipartUpload(t, "big.png", "image/png", bytes.Repeat([]byte("x"), 2048), ""), message: "maximum size"},
		{name: "not multipart", req: httptest.NewRequest(http.MethodPost, "/api/images", strings.NewReader("raw")), message: "multipart"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.handler.ServeHTTP(rec, tc.req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tc.message) {
				t.Fatalf("expected %q in %s", tc.message, rec.Body.String())
			}
		})
	}
}

func TestImageDownloadMissing(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/api/images/missing.png", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
