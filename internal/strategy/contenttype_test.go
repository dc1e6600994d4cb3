package strategy

import (
	"strings"
	"testing"
	"time"
)

func TestContentType_ShouldCache(t *testing.T) {
	s := NewContentType()

	tests := []struct {
		name  string
		value any
		meta  map[string]string
		want  bool
	}{
		{
			name: "known type with good quality",
			meta: map[string]string{"content_type": "article", "quality_score": "85"},
			want: true,
		},
		{
			name: "unknown type rejected",
			meta: map[string]string{"content_type": "podcast"},
			want: false,
		},
		{
			name: "missing type rejected",
			meta: map[string]string{},
			want: false,
		},
		{
			name: "low quality rejected",
			meta: map[string]string{"content_type": "article", "quality_score": "59"},
			want: false,
		},
		{
			name: "quality at threshold admitted",
			meta: map[string]string{"content_type": "article", "quality_score": "60"},
			want: true,
		},
		{
			name: "missing quality admitted",
			meta: map[string]string{"content_type": "shorts"},
			want: true,
		},
		{
			name:  "oversized shorts rejected",
			value: strings.Repeat("x", 101*1024),
			meta:  map[string]string{"content_type": "shorts"},
			want:  false,
		},
		{
			name:  "large report within ceiling",
			value: strings.Repeat("x", 600*1024),
			meta:  map[string]string{"content_type": "report"},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.ShouldCache("k", tt.value, tt.meta); got != tt.want {
				t.Errorf("ShouldCache = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContentType_TTL(t *testing.T) {
	s := NewContentType()

	tests := []struct {
		name string
		meta map[string]string
		want time.Duration
	}{
		{
			name: "base ttl per type",
			meta: map[string]string{"content_type": "shorts", "quality_score": "80"},
			want: 24 * time.Hour,
		},
		{
			name: "high quality extends",
			meta: map[string]string{"content_type": "shorts", "quality_score": "95"},
			want: 36 * time.Hour,
		},
		{
			name: "low quality shortens",
			meta: map[string]string{"content_type": "shorts", "quality_score": "65"},
			want: 12 * time.Hour,
		},
		{
			name: "long-lived quality scores",
			meta: map[string]string{"content_type": "paper_quality", "quality_score": "80"},
			want: 30 * 24 * time.Hour,
		},
		{
			name: "unknown type falls back",
			meta: map[string]string{"content_type": "podcast"},
			want: time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.TTL("k", nil, tt.meta); got != tt.want {
				t.Errorf("TTL = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContentType_KeyDeterministic(t *testing.T) {
	s := NewContentType()

	key1 := s.Key("article", "transformers", "general")
	key2 := s.Key("article", "transformers", "general")
	key3 := s.Key("article", "transformers", "expert")

	if key1 != key2 {
		t.Error("Same parts produced different keys")
	}
	if key1 == key3 {
		t.Error("Different parts produced the same key")
	}
	if len(key1) != 32 {
		t.Errorf("Key length %d, want 32 hex chars", len(key1))
	}
}
