package utils

import (
	"strings"
	"testing"
	"time"
)

func TestRenderMarkdownSanitizes(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantNot string
	}{
		{
			name: "markdown renders",
			in:   "some **bold** text",
			want: "<strong>bold</strong>",
		},
		{
			name:    "script stripped",
			in:      "hello <script>alert(1)</script>world",
			want:    "hello",
			wantNot: "<script>",
		},
		{
			name:    "event handlers stripped",
			in:      `<img src="x" onerror="alert(1)">`,
			wantNot: "onerror",
		},
		{
			name: "links open in new tab",
			in:   "[site](https://example.com)",
			want: `target="_blank"`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := RenderMarkdown(tc.in)
			if tc.want != "" && !strings.Contains(out, tc.want) {
				t.Errorf("expected %q in output, got %q", tc.want, out)
			}
			if tc.wantNot != "" && strings.Contains(out, tc.wantNot) {
				t.Errorf("did not expect %q in output, got %q", tc.wantNot, out)
			}
		})
	}
}

func TestCacheExpiry(t *testing.T) {
	cache, err := NewCache(4)
	if err != nil {
		t.Fatal(err)
	}

	cache.Set("live", "value", time.Minute)
	if got := cache.Get("live"); got != "value" {
		t.Errorf("expected cached value, got %v", got)
	}

	cache.Set("stale", "value", -time.Second)
	if got := cache.Get("stale"); got != nil {
		t.Errorf("expected expired entry to be dropped, got %v", got)
	}

	cache.Delete("live")
	if got := cache.Get("live"); got != nil {
		t.Errorf("expected deleted entry to be gone, got %v", got)
	}
}

func TestRandString(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		s := RandString(8)
		if len(s) != 8 {
			t.Fatalf("expected length 8, got %q", s)
		}
		for _, r := range s {
			if !strings.ContainsRune(slugBytes, r) {
				t.Fatalf("unexpected character %q in %q", r, s)
			}
		}
		seen[s] = true
	}
	if len(seen) < 45 {
		t.Errorf("slugs collide too often: %d distinct out of 50", len(seen))
	}
}
