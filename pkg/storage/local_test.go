package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		fullPath := filepath.Join(root, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
			t.Fatalf("failed to create file: %v", err)
		}
	}
}

// TestNewLocal tests the Local backend constructor
func TestNewLocal(t *testing.T) {
	t.Run("ValidDirectory", func(t *testing.T) {
		tempDir := t.TempDir()

		local, err := NewLocal(tempDir)
		if err != nil {
			t.Fatalf("NewLocal() error = %v", err)
		}

		if !filepath.IsAbs(local.Root()) {
			t.Errorf("Root() = %s, want an absolute path", local.Root())
		}
	})

	t.Run("NonExistentPath", func(t *testing.T) {
		_, err := NewLocal("/nonexistent/path/that/does/not/exist")
		if err == nil {
			t.Error("NewLocal() should fail for non-existent path")
		}
	})

	t.Run("FileNotDirectory", func(t *testing.T) {
		tempFile := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(tempFile, nil, 0644); err != nil {
			t.Fatal(err)
		}

		_, err := NewLocal(tempFile)
		if err == nil {
			t.Error("NewLocal() should fail for file path (not directory)")
		}
	})
}

// TestLocalList tests recursive enumeration and skip rules
func TestLocalList(t *testing.T) {
	tempDir := t.TempDir()
	writeTree(t, tempDir, map[string]string{
		"home.png":                  "a",
		"desktop/about.png":         "bb",
		"desktop/report.json":       "{}",
		".hidden.png":               "x",
		".git/config":               "x",
		"__MACOSX/home.png":         "x",
		"node_modules/pkg/logo.png": "x",
		"tmp/scratch.png":           "x",
		"notes.tmp":                 "x",
	})

	local, err := NewLocal(tempDir)
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	local.SetExcludePatterns([]string{"*.tmp", "tmp/"})

	ctx := context.Background()

	t.Run("ListAll", func(t *testing.T) {
		files, err := local.List(ctx, "")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}

		var got []string
		for _, f := range files {
			got = append(got, f.RelativePath)
		}
		want := []string{"desktop/about.png", "desktop/report.json", "home.png"}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("List() = %v, want %v", got, want)
		}

		about := files[0]
		if about.Size != 2 {
			t.Errorf("Size = %d, want 2", about.Size)
		}
		if about.ContentType != "image/png" {
			t.Errorf("ContentType = %s, want image/png", about.ContentType)
		}
		if about.Path != filepath.Join(local.Root(), "desktop", "about.png") {
			t.Errorf("Path = %s", about.Path)
		}
	})

	t.Run("ListSubdir", func(t *testing.T) {
		files, err := local.List(ctx, "desktop")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(files) != 2 {
			t.Errorf("List() returned %d files, want 2", len(files))
		}
	})

	t.Run("OutsideRoot", func(t *testing.T) {
		if _, err := local.List(ctx, "../"); !errors.Is(err, ErrOutsideRoot) {
			t.Errorf("List() error = %v, want ErrOutsideRoot", err)
		}
	})

	t.Run("ContextCancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := local.List(ctx, "")
		if err == nil {
			t.Error("List() should return error on cancelled context")
		}
	})
}

// TestLocalReadWrite tests Read and Write round trips
func TestLocalReadWrite(t *testing.T) {
	local, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}

	ctx := context.Background()
	content := []byte("png bytes")

	t.Run("WriteWithSubdir", func(t *testing.T) {
		err := local.Write(ctx, "nested/dir/file.png", bytes.NewReader(content), int64(len(content)))
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		reader, err := local.Read(ctx, "nested/dir/file.png")
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		defer reader.Close()

		data, _ := io.ReadAll(reader)
		if !bytes.Equal(data, content) {
			t.Errorf("Read() = %q, want %q", data, content)
		}
	})

	t.Run("UnknownSize", func(t *testing.T) {
		if err := local.Write(ctx, "any.png", bytes.NewReader(content), -1); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	})

	t.Run("ShortWriteRemovesFile", func(t *testing.T) {
		err := local.Write(ctx, "short.png", bytes.NewReader(content), 100)
		if err == nil {
			t.Fatal("Write() should fail when fewer bytes than expected arrive")
		}
		if _, err := os.Stat(filepath.Join(local.Root(), "short.png")); !os.IsNotExist(err) {
			t.Error("partial file should be removed")
		}
	})

	t.Run("EscapingPath", func(t *testing.T) {
		err := local.Write(ctx, "../evil.png", bytes.NewReader(content), int64(len(content)))
		if !errors.Is(err, ErrOutsideRoot) {
			t.Errorf("Write() error = %v, want ErrOutsideRoot", err)
		}
	})

	t.Run("ReadNonExistentFile", func(t *testing.T) {
		if _, err := local.Read(ctx, "absent.png"); err == nil {
			t.Error("Read() should fail for a missing file")
		}
	})
}

func TestContentType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"a.png", "image/png"},
		{"A.PNG", "image/png"},
		{"photo.jpeg", "image/jpeg"},
		{"report.json", "application/json"},
		{"noext", DefaultContentType},
		{"blob.zzzunknown", DefaultContentType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContentType(tt.name); got != tt.want {
				t.Errorf("ContentType(%s) = %s, want %s", tt.name, got, tt.want)
			}
		})
	}
}

func TestValidateDirectory(t *testing.T) {
	tempDir := t.TempDir()
	writeTree(t, tempDir, map[string]string{"full/a.png": "x"})
	if err := os.Mkdir(filepath.Join(tempDir, "empty"), 0755); err != nil {
		t.Fatal(err)
	}

	if _, err := ValidateDirectory(filepath.Join(tempDir, "full")); err != nil {
		t.Errorf("ValidateDirectory() error = %v", err)
	}

	tests := []struct {
		name string
		path string
		want string
	}{
		{"missing", filepath.Join(tempDir, "absent"), "does not exist"},
		{"file", filepath.Join(tempDir, "full", "a.png"), "not a directory"},
		{"empty", filepath.Join(tempDir, "empty"), "is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateDirectory(tt.path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("ValidateDirectory() error = %v, want %q", err, tt.want)
			}
		})
	}
}

// TestBackendInterface verifies Local implements Backend interface
func TestBackendInterface(t *testing.T) {
	local, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}

	var _ Backend = local
}
