package compare

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sdejongh/vrtnorris/pkg/models"
)

func TestListScreenshots(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"b.png", "a.PNG", ".hidden.png", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(tmpDir, "dir.png"), 0755); err != nil {
		t.Fatal(err)
	}

	names, err := ListScreenshots(tmpDir)
	if err != nil {
		t.Fatalf("ListScreenshots() error = %v", err)
	}

	if len(names) != 1 || names[0] != "b.png" {
		t.Errorf("ListScreenshots() = %v, want [b.png]", names)
	}
}

func TestListScreenshotsMissingDir(t *testing.T) {
	names, err := ListScreenshots(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("ListScreenshots() error = %v", err)
	}
	if len(names) != 0 {
		t.Errorf("ListScreenshots() = %v, want empty", names)
	}
}

func TestNewBaselineIndex(t *testing.T) {
	manifest := &models.BaselineManifest{
		OutputDir: "/tmp/vrt-baseline",
		Files: []string{
			"desktop/home.png",
			"mobile/home.png",
			"about.png",
			"readme.md",
		},
	}

	idx := NewBaselineIndex(manifest)

	if idx.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", idx.Len())
	}

	p, ok := idx.Lookup("home.png")
	if !ok || p != filepath.Join("/tmp/vrt-baseline", "mobile", "home.png") {
		t.Errorf("Lookup(home.png) = %s, %v", p, ok)
	}
	if _, ok := idx.Lookup("readme.md"); ok {
		t.Error("non-PNG files should not be indexed")
	}

	names := idx.Names()
	names[0] = "mutated"
	if idx.Names()[0] != "about.png" {
		t.Error("Names() should return a copy")
	}
}

func TestNewBaselineIndexNil(t *testing.T) {
	idx := NewBaselineIndex(nil)
	if idx.Len() != 0 {
		t.Errorf("Len() = %d, want 0", idx.Len())
	}
}

func TestHasherIdentical(t *testing.T) {
	tmpDir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(tmpDir, name)
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	a := write("a", "same content")
	b := write("b", "same content")
	c := write("c", "diff content")
	d := write("d", "short")

	h := NewHasher(0)
	ctx := context.Background()

	tests := []struct {
		name string
		x, y string
		want bool
	}{
		{"equal", a, b, true},
		{"same size different bytes", a, c, false},
		{"different size", a, d, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.Identical(ctx, tt.x, tt.y)
			if err != nil {
				t.Fatalf("Identical() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Identical() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := h.Identical(ctx, a, filepath.Join(tmpDir, "absent")); err == nil {
		t.Error("Identical() should fail for a missing file")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := h.Identical(cancelled, a, b); !errors.Is(err, context.Canceled) {
		t.Errorf("Identical() error = %v, want context.Canceled", err)
	}
}
