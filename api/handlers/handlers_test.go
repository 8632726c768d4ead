package handlers_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pointscape/pointscape/api/server"
	"github.com/pointscape/pointscape/pkg/blob"
	"github.com/pointscape/pointscape/pkg/ingest"
	"github.com/pointscape/pointscape/pkg/registry"
	pstesting "github.com/pointscape/pointscape/utils/pkg/testing"
)

// memRegistry is an in-memory Registry for handler tests. Errors can be
// injected per operation.
type memRegistry struct {
	mu    sync.Mutex
	metas map[string]registry.Meta
	order []string // insertion order, oldest first

	saveErr error
	listErr error
	getErr  error
}

func newMemRegistry() *memRegistry {
	return &memRegistry{metas: make(map[string]registry.Meta)}
}

func (m *memRegistry) Save(_ context.Context, meta registry.Meta) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.metas[meta.Identifier]; !ok {
		m.order = append(m.order, meta.Identifier)
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	m.metas[meta.Identifier] = meta
	return nil
}

func (m *memRegistry) List(_ context.Context, limit, offset int) (registry.Page, error) {
	if m.listErr != nil {
		return registry.Page{}, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	datasets := []registry.Meta{}
	for i := len(m.order) - 1 - offset; i >= 0 && len(datasets) < limit; i-- {
		datasets = append(datasets, m.metas[m.order[i]])
	}
	return registry.Page{Datasets: datasets, Total: len(m.order)}, nil
}

func (m *memRegistry) Get(_ context.Context, identifier string) (*registry.Meta, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.metas[identifier]
	if !ok {
		return nil, registry.ErrNotFound
	}
	return &meta, nil
}

func (m *memRegistry) Delete(_ context.Context, identifier string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.metas[identifier]; !ok {
		return registry.ErrNotFound
	}
	delete(m.metas, identifier)
	for i, id := range m.order {
		if id == identifier {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// memBlobs is an in-memory blob.Store with injectable errors.
type memBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte

	putErr error
	getErr error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{blobs: make(map[string][]byte)}
}

func (m *memBlobs) Put(_ context.Context, identifier string, data []byte) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[identifier] = append([]byte(nil), data...)
	return nil
}

func (m *memBlobs) Get(_ context.Context, identifier string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[identifier]
	if !ok {
		return nil, blob.ErrNotFound
	}
	return data, nil
}

func (m *memBlobs) Delete(_ context.Context, identifier string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[identifier]; !ok {
		return blob.ErrNotFound
	}
	delete(m.blobs, identifier)
	return nil
}

type testEnv struct {
	handler  http.Handler
	registry *memRegistry
	blobs    *memBlobs
}

func newTestEnv(t *testing.T, limits ingest.Limits) *testEnv {
	t.Helper()

	reg := newMemRegistry()
	blobs := newMemBlobs()

	srv, err := server.New(server.Config{
		Logger:     pstesting.NewLogger(),
		ListenAddr: "127.0.0.1:0",
		Registry:   reg,
		Blobs:      blobs,
		Limits:     limits,
	})
	require.NoError(t, err)

	return &testEnv{handler: srv.Handler(), registry: reg, blobs: blobs}
}

// multipartFile builds a multipart body with one file field.
func multipartFile(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return body, mw.FormDataContentType()
}
