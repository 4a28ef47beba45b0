package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps objects in process. It backs tests and local runs without
// an object store.
type MemoryStore struct {
	bucket string
	now    func() time.Time

	mu      sync.RWMutex
	objects map[string]memoryObject
	created bool
}

type memoryObject struct {
	meta Object
	data []byte
}

var _ ObjectStore = (*MemoryStore)(nil)

// NewMemory returns an empty store for bucket.
func NewMemory(bucket string) *MemoryStore {
	return &MemoryStore{bucket: bucket, now: time.Now, objects: make(map[string]memoryObject)}
}

// Bucket returns the bucket name.
func (s *MemoryStore) Bucket() string { return s.bucket }

// EnsureBucket marks the bucket as created.
func (s *MemoryStore) EnsureBucket(context.Context) error {
	s.mu.Lock()
	s.created = true
	s.mu.Unlock()
	return nil
}

// Upload buffers body under name.
func (s *MemoryStore) Upload(_ context.Context, name string, body io.Reader, _ int64, contentType string) (Object, error) {
	name, err := normaliseName(name)
	if err != nil {
		return Object{}, err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return Object{}, fmt.Errorf("storage: upload: %w", err)
	}
	meta := Object{Name: name, ContentType: contentType, Size: int64(len(data)), LastModified: s.now().UTC()}
	s.mu.Lock()
	s.objects[name] = memoryObject{meta: meta, data: data}
	s.mu.Unlock()
	return meta, nil
}

// Download returns a reader over a copy of the stored bytes.
func (s *MemoryStore) Download(_ context.Context, name string) (io.ReadCloser, Object, error) {
	name, err := normaliseName(name)
	if err != nil {
		return nil, Object{}, err
	}
	s.mu.RLock()
	obj, ok := s.objects[name]
	s.mu.RUnlock()
	if !ok {
		return nil, Object{}, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.meta, nil
}

// Delete removes name.
func (s *MemoryStore) Delete(_ context.Context, name string) error {
	name, err := normaliseName(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[name]; !ok {
		return ErrObjectNotFound
	}
	delete(s.objects, name)
	return nil
}

// PresignedURL returns a memory:// URL carrying the expiry.
func (s *MemoryStore) PresignedURL(_ context.Context, name string, ttl time.Duration) (string, error) {
	name, err := normaliseName(name)
	if err != nil {
		return "", err
	}
	s.mu.RLock()
	_, ok := s.objects[name]
	s.mu.RUnlock()
	if !ok {
		return "", ErrObjectNotFound
	}
	u := url.URL{
		Scheme:   "memory",
		Host:     s.bucket,
		Path:     "/" + name,
		RawQuery: url.Values{"expires": {s.now().Add(ttl).UTC().Format(time.RFC3339)}}.Encode(),
	}
	return u.String(), nil
}

// List returns objects under prefix sorted by name.
func (s *MemoryStore) List(_ context.Context, prefix string) ([]Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var objects []Object
	for name, obj := range s.objects {
		if strings.HasPrefix(name, prefix) {
			objects = append(objects, obj.meta)
		}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
	return objects, nil
}

// Copy duplicates src to dst.
func (s *MemoryStore) Copy(_ context.Context, src, dst string) error {
	src, err := normaliseName(src)
	if err != nil {
		return err
	}
	dst, err = normaliseName(dst)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[src]
	if !ok {
		return ErrObjectNotFound
	}
	copied := append([]byte(nil), obj.data...)
	meta := obj.meta
	meta.Name = dst
	meta.LastModified = s.now().UTC()
	s.objects[dst] = memoryObject{meta: meta, data: copied}
	return nil
}

// HealthCheck always succeeds.
func (s *MemoryStore) HealthCheck(context.Context) error { return nil }
