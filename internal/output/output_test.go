package output

import (
	"strings"
	"testing"
	"time"

	"github.com/scribesync/scribe/internal/models"
)

func TestFormatTimeAgo(t *testing.T) {
	now := time.Now()
	cases := []struct {
		t    time.Time
		want string
	}{
		{now.Add(-30 * time.Second), "just now"},
		{now.Add(-1 * time.Minute), "1m ago"},
		{now.Add(-5 * time.Minute), "5m ago"},
		{now.Add(-1 * time.Hour), "1h ago"},
		{now.Add(-3 * time.Hour), "3h ago"},
		{now.Add(-24 * time.Hour), "1d ago"},
		{now.Add(-3 * 24 * time.Hour), "3d ago"},
	}
	for _, tc := range cases {
		if got := FormatTimeAgo(tc.t); got != tc.want {
			t.Errorf("FormatTimeAgo(%v): got %q, want %q", tc.t, got, tc.want)
		}
	}

	old := now.Add(-30 * 24 * time.Hour)
	if got := FormatTimeAgo(old); got != old.Format("2006-01-02") {
		t.Errorf("old time: got %q", got)
	}
}

func TestFormatOperation(t *testing.T) {
	op := &models.Operation{
		ID:         12,
		EntityType: models.EntityNote,
		EntityID:   7,
		Kind:       models.OpUpdate,
		RecordedAt: time.Now(),
	}
	line := FormatOperation(op)
	for _, want := range []string{"#12", "update", "note/7"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func TestFormatDraftTruncatesPreview(t *testing.T) {
	d := &models.Draft{
		Scope:   models.ScopeFor(models.EntityNote, 1),
		Content: strings.Repeat("x", 100) + "\nsecond line",
		SavedAt: time.Now(),
	}
	line := FormatDraft(d)
	if strings.Contains(line, "\n") {
		t.Error("preview contains newline")
	}
	if !strings.Contains(line, "...") {
		t.Error("long content not truncated")
	}
	if !strings.Contains(line, "note:1") {
		t.Errorf("line %q missing scope", line)
	}
}

func TestRenderMarkdownEmpty(t *testing.T) {
	out, err := RenderMarkdownWithWidth("   \n  ", 80)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "" {
		t.Errorf("blank input: got %q", out)
	}
}

func TestRenderMarkdownClampsWidth(t *testing.T) {
	out, err := RenderMarkdownWithWidth("# Title\n\nsome text", 1)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out == "" {
		t.Error("expected rendered output")
	}
}
