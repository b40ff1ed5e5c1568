package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestClampRange(t *testing.T) {
	to := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	from := to.Add(-200 * 24 * time.Hour)

	gotFrom, gotTo := ClampRange(from, to, 90*24*time.Hour)
	if !gotTo.Equal(to) {
		t.Fatalf("end moved: %v", gotTo)
	}
	if gotTo.Sub(gotFrom) != 90*24*time.Hour {
		t.Fatalf("unexpected span %v", gotTo.Sub(gotFrom))
	}

	gotFrom, gotTo = ClampRange(time.Time{}, to, 90*24*time.Hour)
	if !gotFrom.IsZero() || !gotTo.Equal(to) {
		t.Fatalf("zero from should pass through")
	}
}