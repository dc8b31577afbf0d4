package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/proctor/pkg/lifecycle"
	"github.com/JaimeStill/proctor/pkg/routes"
	"github.com/JaimeStill/proctor/pkg/storage"
)

type fakeStore struct {
	blobs      map[string]string
	listPrefix string
	listMax    int32
}

func (f *fakeStore) Start(*lifecycle.Coordinator) error { return nil }

func (f *fakeStore) Upload(_ context.Context, key string, r io.Reader, _ string) error {
	b, err := io.ReadAll(r)
	f.blobs[key] = string(b)
	return err
}

func (f *fakeStore) Download(_ context.Context, key string) (io.ReadCloser, error) {
	b, ok := f.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(b)), nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	delete(f.blobs, key)
	return nil
}

func (f *fakeStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := f.blobs[key]
	return ok, nil
}

func (f *fakeStore) List(_ context.Context, prefix, _ string, maxResults int32) (*storage.BlobList, error) {
	f.listPrefix, f.listMax = prefix, maxResults
	list := &storage.BlobList{Blobs: []storage.BlobMeta{}}
	for key, body := range f.blobs {
		if strings.HasPrefix(key, prefix) {
			list.Blobs = append(list.Blobs, storage.BlobMeta{Key: key, ContentLength: int64(len(body))})
		}
	}
	return list, nil
}

func (f *fakeStore) Find(_ context.Context, key string) (*storage.BlobMeta, error) {
	b, ok := f.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.BlobMeta{
		Key:           key,
		ContentType:   "application/json",
		ContentLength: int64(len(b)),
		LastModified:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}, nil
}

const sessionID = "7f6c1b9e-0a43-4a55-9d0f-3b1c2f6e9a10"

func newArchiveMux(t *testing.T) (*http.ServeMux, *fakeStore) {
	t.Helper()
	store := &fakeStore{blobs: map[string]string{
		"reports/" + sessionID + ".json": `{"session_id":"` + sessionID + `"}`,
	}}
	h := newArchiveHandler(store, slog.New(slog.NewTextHandler(io.Discard, nil)), 25)

	mux := http.NewServeMux()
	routes.Register(mux, h.routes())
	return mux, store
}

func serve(mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestArchiveList(t *testing.T) {
	mux, store := newArchiveMux(t)

	rec := serve(mux, "/archives?prefix=7f6c")
	require.Equal(t, http.StatusOK, rec.Code)

	var list storage.BlobList
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list.Blobs, 1)
	assert.Equal(t, "reports/7f6c", store.listPrefix)
	assert.Equal(t, int32(25), store.listMax)

	rec = serve(mux, "/archives?max_results=10")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(10), store.listMax)

	rec = serve(mux, "/archives?max_results=zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestArchiveFind(t *testing.T) {
	mux, _ := newArchiveMux(t)

	for _, name := range []string{sessionID, sessionID + ".json"} {
		rec := serve(mux, "/archives/"+name)
		require.Equal(t, http.StatusOK, rec.Code, name)

		var meta storage.BlobMeta
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&meta))
		assert.Equal(t, "reports/"+sessionID+".json", meta.Key)
	}

	rec := serve(mux, "/archives/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(mux, "/archives/.json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestArchiveDownload(t *testing.T) {
	mux, _ := newArchiveMux(t)

	rec := serve(mux, "/archives/"+sessionID+"/download")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), sessionID+".json")
	assert.JSONEq(t, `{"session_id":"`+sessionID+`"}`, rec.Body.String())

	rec = serve(mux, "/archives/missing/download")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
