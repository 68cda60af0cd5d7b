package main

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode"
)

func TestStart_ExitCodes(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "catalog.yaml")
	cases := map[string]struct {
		args []string
		want int
	}{
		"unknown flag": {args: []string{"storefront", "--no-such-flag"}, want: 2},
		"missing seed file": {
			args: []string{"storefront", "--addr", "127.0.0.1:0", "--log-level", "error", "--seed", missing},
			want: 1,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := start(tc.args); got != tc.want {
				t.Fatalf("start(%v) = %d, want %d", tc.args, got, tc.want)
			}
		})
	}
}

func TestSourceCommentsAreEnglish(t *testing.T) {
	err := filepath.WalkDir("..", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != ".." && (strings.HasPrefix(d.Name(), "_") || strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		if d.IsDir() || filepath.Ext(path) != ".go" {
			return nil
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for i, line := range strings.Split(string(src), "\n") {
			if strings.IndexFunc(line, func(r rune) bool { return unicode.Is(unicode.Cyrillic, r) }) >= 0 {
				t.Errorf("%s:%d: non-English text", path, i+1)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
