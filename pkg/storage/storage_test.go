package storage_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/JaimeStill/proctor/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func newSystem(t *testing.T) storage.System {
	t.Helper()
	cfg := &storage.Config{ConnectionString: azuriteConnString}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}
	sys, err := storage.New(cfg, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return sys
}

func TestNewInvalidConnectionString(t *testing.T) {
	cfg := &storage.Config{ConnectionString: "not-a-connection-string"}
	if _, err := storage.New(cfg, slog.Default()); err == nil {
		t.Fatal("expected error for invalid connection string")
	}
}

func TestKeyValidation(t *testing.T) {
	sys := newSystem(t)
	ctx := context.Background()

	tests := []struct {
		key  string
		want error
	}{
		{"", storage.ErrEmptyKey},
		{"reports/../secrets.json", storage.ErrInvalidKey},
		{"../reports/a.json", storage.ErrInvalidKey},
		{"/reports/a.json", storage.ErrInvalidKey},
		{`reports\a.json`, storage.ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if err := sys.Upload(ctx, tt.key, strings.NewReader("{}"), "application/json"); !errors.Is(err, tt.want) {
				t.Errorf("Upload: got %v, want %v", err, tt.want)
			}
			if _, err := sys.Download(ctx, tt.key); !errors.Is(err, tt.want) {
				t.Errorf("Download: got %v, want %v", err, tt.want)
			}
			if _, err := sys.Find(ctx, tt.key); !errors.Is(err, tt.want) {
				t.Errorf("Find: got %v, want %v", err, tt.want)
			}
			if _, err := sys.Exists(ctx, tt.key); !errors.Is(err, tt.want) {
				t.Errorf("Exists: got %v, want %v", err, tt.want)
			}
			if err := sys.Delete(ctx, tt.key); !errors.Is(err, tt.want) {
				t.Errorf("Delete: got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: reports/x.json", storage.ErrNotFound), http.StatusNotFound},
		{storage.ErrEmptyKey, http.StatusBadRequest},
		{storage.ErrInvalidKey, http.StatusBadRequest},
		{fmt.Errorf("%w: \"0\"", storage.ErrInvalidMaxResults), http.StatusBadRequest},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := storage.MapHTTPStatus(tt.err); got != tt.want {
			t.Errorf("MapHTTPStatus(%v): got %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestParseMaxResults(t *testing.T) {
	tests := []struct {
		raw     string
		want    int32
		wantErr bool
	}{
		{"", 50, false},
		{"10", 10, false},
		{"999999", storage.MaxListCap, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"ten", 0, true},
	}

	for _, tt := range tests {
		got, err := storage.ParseMaxResults(tt.raw, 50)
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: err = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, storage.ErrInvalidMaxResults) {
			t.Errorf("%q: error should wrap ErrInvalidMaxResults", tt.raw)
		}
		if got != tt.want {
			t.Errorf("%q: got %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestConfigFinalize(t *testing.T) {
	env := &storage.Env{
		ConnectionString:  "TEST_STORAGE_CONNECTION_STRING",
		MaxListSize:       "TEST_STORAGE_MAX_LIST_SIZE",
		UploadBlockSize:   "TEST_STORAGE_BLOCK_SIZE",
		UploadConcurrency: "TEST_STORAGE_CONCURRENCY",
	}

	t.Run("defaults", func(t *testing.T) {
		cfg := storage.Config{ConnectionString: azuriteConnString}
		if err := cfg.Finalize(nil); err != nil {
			t.Fatal(err)
		}
		if cfg.ContainerName != "reports" {
			t.Errorf("container: got %s, want reports", cfg.ContainerName)
		}
		if cfg.MaxListSize != 50 {
			t.Errorf("max list size: got %d, want 50", cfg.MaxListSize)
		}
		if cfg.UploadBlockSizeBytes() != 1024*1024 {
			t.Errorf("block size: got %d, want 1MB", cfg.UploadBlockSizeBytes())
		}
		if cfg.UploadConcurrency != 2 {
			t.Errorf("concurrency: got %d, want 2", cfg.UploadConcurrency)
		}
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("TEST_STORAGE_CONNECTION_STRING", azuriteConnString)
		t.Setenv("TEST_STORAGE_MAX_LIST_SIZE", "100000")
		t.Setenv("TEST_STORAGE_BLOCK_SIZE", "4MB")
		t.Setenv("TEST_STORAGE_CONCURRENCY", "8")

		var cfg storage.Config
		if err := cfg.Finalize(env); err != nil {
			t.Fatal(err)
		}
		if cfg.MaxListSize != storage.MaxListCap {
			t.Errorf("max list size should clamp to %d, got %d", storage.MaxListCap, cfg.MaxListSize)
		}
		if cfg.UploadBlockSizeBytes() != 4*1024*1024 {
			t.Errorf("block size: got %d", cfg.UploadBlockSizeBytes())
		}
		if cfg.UploadConcurrency != 8 {
			t.Errorf("concurrency: got %d, want 8", cfg.UploadConcurrency)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		tests := map[string]storage.Config{
			"missing connection": {},
			"bad block size":     {ConnectionString: azuriteConnString, UploadBlockSize: "huge"},
			"negative list":      {ConnectionString: azuriteConnString, MaxListSize: -1},
		}
		for name, cfg := range tests {
			if err := cfg.Finalize(nil); err == nil {
				t.Errorf("%s: expected error", name)
			}
		}
	})
}

func TestConfigMerge(t *testing.T) {
	base := storage.Config{ContainerName: "reports", MaxListSize: 50, UploadConcurrency: 2}
	base.Merge(&storage.Config{ContainerName: "archive", UploadBlockSize: "2MB"})

	if base.ContainerName != "archive" || base.UploadBlockSize != "2MB" {
		t.Errorf("overlay fields not applied: %+v", base)
	}
	if base.MaxListSize != 50 || base.UploadConcurrency != 2 {
		t.Errorf("zero overlay fields should keep base: %+v", base)
	}
}
