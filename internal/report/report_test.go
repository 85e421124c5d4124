package report

import (
	"strings"
	"testing"
	"time"

	"github.com/linkerlin/mentiondigest/internal/types"
)

func TestBuild(t *testing.T) {
	b := NewBuilder("https://slack.com/app_redirect?channel=%s")
	channels := []types.ChannelSummary{
		{ID: "C1", Name: "dev"},
		{ID: "C2", Name: "general"},
	}

	got := b.Build("2026-10-18", 12, channels)

	want := strings.Join([]string{
		"*:mailbox_with_mail: Mentions on 2026-10-18*",
		"You were mentioned 12 times across 2 channels.",
		"• #dev <https://slack.com/app_redirect?channel=C1|open>",
		"• #general <https://slack.com/app_redirect?channel=C2|open>",
		"Take a look when you have a moment. Have a great day! :muscle:",
	}, "\n")
	if got != want {
		t.Errorf("Build =\n%s\nwant\n%s", got, want)
	}
}

func TestBuild_Singular(t *testing.T) {
	got := NewBuilder("%s").Build("2026-10-18", 1, []types.ChannelSummary{{ID: "C1", Name: "dev"}})
	if !strings.Contains(got, "mentioned 1 time across 1 channel.") {
		t.Errorf("singular count line missing:\n%s", got)
	}
}

func TestNotFound(t *testing.T) {
	got := NotFound("2026-10-18")
	if !strings.Contains(got, "No mentions on 2026-10-18") {
		t.Errorf("NotFound = %q", got)
	}
	if strings.Contains(got, "•") {
		t.Error("NotFound must not contain bullets")
	}
}

func TestStamp(t *testing.T) {
	loc := time.FixedZone("JST", 9*60*60)
	now := time.Date(2026, 10, 19, 0, 5, 0, 0, time.UTC)

	if got, want := Stamp(now, loc), "_Generated at 2026-10-19 09:05 JST_"; got != want {
		t.Errorf("Stamp = %q, want %q", got, want)
	}
	if got := WithStamp("body", "stamp"); got != "body\nstamp" {
		t.Errorf("WithStamp = %q", got)
	}
}

func TestDigest(t *testing.T) {
	header := []string{"Name", "Status", ""}
	rows := [][]string{
		{"deploy", "done", "extra"},
		{"review", "", ""},
		{"", "", ""},
	}

	got := Digest("Tasks", header, rows, 0)

	want := strings.Join([]string{
		"*:clipboard: Tasks (3 rows)*",
		"• Name: deploy / Status: done / extra",
		"• Name: review",
	}, "\n")
	if got != want {
		t.Errorf("Digest =\n%s\nwant\n%s", got, want)
	}
}

func TestDigest_MaxRows(t *testing.T) {
	rows := [][]string{{"a"}, {"b"}, {"c"}, {"d"}}

	got := Digest("Tasks", []string{"Item"}, rows, 2)

	if strings.Count(got, "•") != 2 {
		t.Errorf("expected 2 rows listed:\n%s", got)
	}
	if !strings.HasSuffix(got, "…and 2 more") {
		t.Errorf("expected overflow line:\n%s", got)
	}
}

func TestEscape(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"a & b", "a &amp; b"},
		{"<!channel>", "&lt;!channel&gt;"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Escape(tt.in); got != tt.want {
			t.Errorf("Escape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDigest_EscapesCells(t *testing.T) {
	got := Digest("Q&A", []string{"Note"}, [][]string{{"<!here> ping"}}, 0)
	if !strings.Contains(got, "Q&amp;A") || !strings.Contains(got, "Note: &lt;!here&gt; ping") {
		t.Errorf("cells not escaped:\n%s", got)
	}
}
