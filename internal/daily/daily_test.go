package daily

import (
	"testing"
	"time"
)

func TestDateKey(t *testing.T) {
	ts := time.Date(2024, 3, 9, 23, 30, 0, 0, time.FixedZone("UTC+5", 5*3600))
	if have, want := DateKey(ts), "2024-03-09"; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestSeedDeterministic(t *testing.T) {
	day := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	later := time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC)
	if Seed(day, "salt") != Seed(later, "salt") {
		t.Error("same date must give the same seed")
	}
	if Seed(day, "salt") == Seed(day.AddDate(0, 0, 1), "salt") {
		t.Error("consecutive dates gave the same seed")
	}
	if Seed(day, "salt") == Seed(day, "other") {
		t.Error("different salts gave the same seed")
	}
	if Seed(day, "salt") <= 0 {
		t.Error("seed must be positive (zero means random to the engine)")
	}
}
