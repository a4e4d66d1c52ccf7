package storage

import "testing"

func TestShouldExclude(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		patterns []string
		want     bool
	}{
		{"no patterns", "a.png", nil, false},
		{"basename glob", "shots/a.tmp", []string{"*.tmp"}, true},
		{"basename no match", "shots/a.png", []string{"*.tmp"}, false},
		{"dir pattern root", "build/a.png", []string{"build/"}, true},
		{"dir pattern nested", "x/build/a.png", []string{"build/"}, true},
		{"dir pattern itself", "build", []string{"build/"}, true},
		{"dir pattern prefix only", "builder/a.png", []string{"build/"}, false},
		{"path glob", "shots/a.png", []string{"shots/*.png"}, true},
		{"path glob suffix", "x/shots/a.png", []string{"shots/a.png"}, true},
		{"any depth", "a/b/cache/c.png", []string{"**/cache"}, true},
		{"any depth glob", "a/b/c.bak", []string{"**/*.bak"}, true},
		{"empty pattern", "a.png", []string{""}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldExclude(tt.path, tt.patterns); got != tt.want {
				t.Errorf("shouldExclude(%s, %v) = %v, want %v", tt.path, tt.patterns, got, tt.want)
			}
		})
	}
}

func TestSkipEntry(t *testing.T) {
	for _, name := range []string{".git", ".DS_Store", "__MACOSX", "node_modules"} {
		if !skipEntry(name) {
			t.Errorf("skipEntry(%s) = false, want true", name)
		}
	}
	for _, name := range []string{"home.png", "desktop", "modules"} {
		if skipEntry(name) {
			t.Errorf("skipEntry(%s) = true, want false", name)
		}
	}
}
