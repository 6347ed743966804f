package utils_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/samreport-cli/internal/utils"
)

func TestCountTokens(t *testing.T) {
	cases := []struct {
		name string
		in   string
		min  int
	}{
		{"empty", "", 0},
		{"simple", "hello world", 2},
		{"long", strings.Repeat("a", 4000), 900},
	}
	for _, c := range cases {
		if got := utils.CountTokens(c.in); got < c.min {
			t.Errorf("%s: got %d < min %d", c.name, got, c.min)
		}
	}
}

func TestTruncateToTokenLimit(t *testing.T) {
	text := strings.Repeat("abcd ", 1000)
	trunc := utils.TruncateToTokenLimit(text, 300)
	if n := utils.CountTokens(trunc); n > 300 {
		t.Fatalf("tokens=%d exceeds limit", n)
	}
	if len(trunc) == 0 {
		t.Fatalf("expected non-empty truncation")
	}
}

func TestFitLines(t *testing.T) {
	lines := []string{strings.Repeat("a", 40), strings.Repeat("b", 40), strings.Repeat("c", 40)}
	got := utils.FitLines(lines, 25)
	if len(got) != 2 {
		t.Fatalf("kept %d lines", len(got))
	}
	one := utils.FitLines([]string{strings.Repeat("x", 400)}, 10)
	if len(one) != 1 || len(one[0]) != 40 {
		t.Fatalf("first line not truncated: %v", one)
	}
	if all := utils.FitLines(lines, 0); len(all) != 3 {
		t.Fatalf("limit 0 should keep all")
	}
}

func TestJoinBullets(t *testing.T) {
	if got := utils.JoinBullets([]string{"a", "b"}); got != "- a\n- b" {
		t.Fatalf("got %q", got)
	}
	if utils.JoinBullets(nil) != "" {
		t.Fatalf("expected empty")
	}
}

func TestSafeWriteFileCreatesDir(t *testing.T) {
	p := filepath.Join(t.TempDir(), "reports", "out.md")
	if err := utils.SafeWriteFile(p, []byte("ok")); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil || string(b) != "ok" {
		t.Fatalf("read back %q %v", b, err)
	}
	if _, err := os.Stat(p + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}
