package search

import (
	"testing"
	"time"
)

func TestBuildQuery(t *testing.T) {
	day := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		names []string
		want  string
	}{
		{
			name: "mention only",
			want: "<@U123> after:2026-10-17 before:2026-10-19",
		},
		{
			name:  "with names",
			names: []string{"Taro", "山田"},
			want:  `(<@U123> OR "Taro" OR "山田") after:2026-10-17 before:2026-10-19`,
		},
		{
			name:  "quotes stripped and blanks skipped",
			names: []string{`"Taro"`, "  "},
			want:  `(<@U123> OR "Taro") after:2026-10-17 before:2026-10-19`,
		},
		{
			name:  "only blank names",
			names: []string{""},
			want:  "<@U123> after:2026-10-17 before:2026-10-19",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildQuery("U123", tt.names, day); got != tt.want {
				t.Errorf("BuildQuery = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReportDay(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// 2026-10-19 00:30 JST is still 2026-10-18 in UTC.
	now := time.Date(2026, 10, 18, 15, 30, 0, 0, time.UTC)

	got := ReportDay(now, tokyo, 1)
	if got.Format(DateLayout) != "2026-10-18" {
		t.Errorf("ReportDay = %s, want 2026-10-18", got.Format(DateLayout))
	}
	if got.Hour() != 0 || got.Location() != tokyo {
		t.Errorf("ReportDay should be midnight in loc, got %v", got)
	}

	if got := ReportDay(now, tokyo, 0); got.Format(DateLayout) != "2026-10-19" {
		t.Errorf("ReportDay(lookback 0) = %s, want 2026-10-19", got.Format(DateLayout))
	}
}

func TestReportDay_SameDay(t *testing.T) {
	loc := time.FixedZone("JST", 9*60*60)
	now := time.Date(2026, 10, 19, 15, 30, 0, 0, loc)

	day := ReportDay(now, loc, 0)
	if want := time.Date(2026, 10, 19, 0, 0, 0, 0, loc); !day.Equal(want) {
		t.Errorf("ReportDay = %v, want %v", day, want)
	}
	if got, want := BuildQuery("U1", nil, day), "<@U1> after:2026-10-18 before:2026-10-20"; got != want {
		t.Errorf("BuildQuery = %q, want %q", got, want)
	}
}
