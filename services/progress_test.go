package services

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"crypto-mining-client/models"
)

func TestPerHourRate(t *testing.T) {
	s := models.MiningSession{MiningPerSecond: decimal.RequireFromString("0.00000001")}
	got := PerHourRate(s)
	want := decimal.RequireFromString("0.000036")
	if !got.Equal(want) {
		t.Errorf("PerHourRate = %s, want %s", got, want)
	}
}

func TestETAHours(t *testing.T) {
	tests := []struct {
		name     string
		progress float64
		elapsed  float64
		want     float64
		ok       bool
	}{
		{"half done after two hours", 50, 2, 2, true},
		{"quarter done after one hour", 25, 1, 3, true},
		{"no progress yet", 0, 5, 0, false},
		{"no elapsed time", 10, 0, 0, false},
		{"already complete", 100, 10, 0, false},
		{"over complete", 120, 10, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := models.MiningSession{ProgressPercentage: tt.progress, ElapsedHours: tt.elapsed}
			got, ok := ETAHours(s)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ETAHours = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatETA(t *testing.T) {
	undefined := models.MiningSession{ProgressPercentage: 0, ElapsedHours: 3}
	if got := FormatETA(undefined); got != "unknown" {
		t.Errorf("FormatETA with no progress = %q, want %q", got, "unknown")
	}

	short := models.MiningSession{ProgressPercentage: 80, ElapsedHours: 2}
	if got := FormatETA(short); got != "30m" {
		t.Errorf("FormatETA = %q, want %q", got, "30m")
	}

	long := models.MiningSession{ProgressPercentage: 50, ElapsedHours: 2}
	if got := FormatETA(long); got != "2.0h" {
		t.Errorf("FormatETA = %q, want %q", got, "2.0h")
	}
}

func TestFormatProgressClamps(t *testing.T) {
	if got := FormatProgress(models.MiningSession{ProgressPercentage: -5}); got != "0.0%" {
		t.Errorf("FormatProgress(-5) = %q, want %q", got, "0.0%")
	}
	if got := FormatProgress(models.MiningSession{ProgressPercentage: 123}); got != "100.0%" {
		t.Errorf("FormatProgress(123) = %q, want %q", got, "100.0%")
	}
	if got := FormatProgress(models.MiningSession{ProgressPercentage: 42.25}); got != "42.2%" {
		t.Errorf("FormatProgress(42.25) = %q, want %q", got, "42.2%")
	}
}
