package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func floatPtr(v float64) *float64 { return &v }

func TestPersistWorthy(t *testing.T) {
	cases := []struct {
		name     string
		last     *float64
		current  float64
		duration float64
		want     bool
	}{
		{
			name:     "below_engagement_threshold_not_persisted",
			last:     nil,
			current:  2,
			duration: 100,
			want:     false,
		},
		{
			name:     "first_meaningful_sample",
			last:     nil,
			current:  6,
			duration: 100,
			want:     true,
		},
		{
			name:     "first_sample_exactly_at_threshold",
			last:     nil,
			current:  5,
			duration: 100,
			want:     true,
		},
		{
			name:     "short_video_near_completion_beats_threshold",
			last:     nil,
			current:  3.8,
			duration: 4,
			want:     true,
		},
		{
			name:     "interval_not_elapsed",
			last:     floatPtr(6),
			current:  12.5,
			duration: 100,
			want:     false,
		},
		{
			name:     "interval_elapsed",
			last:     floatPtr(6),
			current:  16,
			duration: 100,
			want:     true,
		},
		{
			name:     "near_completion_without_interval",
			last:     floatPtr(85),
			current:  90,
			duration: 100,
			want:     true,
		},
		{
			name:     "near_completion_only_once",
			last:     floatPtr(90),
			current:  91,
			duration: 100,
			want:     false,
		},
		{
			name:     "same_value_resent",
			last:     floatPtr(16),
			current:  16,
			duration: 100,
			want:     false,
		},
		{
			name:     "negative_progress_rejected",
			last:     nil,
			current:  -1,
			duration: 100,
			want:     false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := persistWorthy(tc.last, tc.current, tc.duration)
			if got != tc.want {
				t.Fatalf("persistWorthy(%v, %v, %v)=%v, want %v", tc.last, tc.current, tc.duration, got, tc.want)
			}
		})
	}
}

// A continuous sub-second tick stream over a 100 second video must persist
// on the order of duration/10 + 2 samples, not one per tick.
func TestMemoryGateSamplingBound(t *testing.T) {
	gate := NewMemoryProgressGate()
	key := GateKey{UserID: uuid.New(), VideoID: uuid.New(), SessionID: "s1"}

	const duration = 100.0
	ticks := 0
	persisted := 0
	for tSec := 0.0; tSec <= duration; tSec += 0.25 {
		ticks++
		ok, err := gate.ShouldPersist(context.Background(), key, tSec, duration)
		if err != nil {
			t.Fatalf("ShouldPersist error: %v", err)
		}
		if ok {
			persisted++
		}
	}

	if ticks < 400 {
		t.Fatalf("expected a dense tick stream, got %d ticks", ticks)
	}
	maxWrites := int(duration/sampleIntervalSeconds) + 2
	if persisted > maxWrites {
		t.Fatalf("persisted %d samples, want <= %d", persisted, maxWrites)
	}
	if persisted < 3 {
		t.Fatalf("persisted %d samples, expected at least first, interval and near-completion writes", persisted)
	}
}

func TestMemoryGateScenario(t *testing.T) {
	gate := NewMemoryProgressGate()
	key := GateKey{UserID: uuid.New(), VideoID: uuid.New(), SessionID: "s1"}
	const duration = 100.0

	steps := []struct {
		at   float64
		want bool
	}{
		{at: 2, want: false},
		{at: 6, want: true},
		{at: 16, want: true},
		{at: 95, want: true},
	}
	for _, step := range steps {
		got, err := gate.ShouldPersist(context.Background(), key, step.at, duration)
		if err != nil {
			t.Fatalf("ShouldPersist(%v) error: %v", step.at, err)
		}
		if got != step.want {
			t.Fatalf("ShouldPersist at t=%vs = %v, want %v", step.at, got, step.want)
		}
	}
}

func TestMemoryGateIndependentPerVideo(t *testing.T) {
	gate := NewMemoryProgressGate()
	user := uuid.New()
	keyA := GateKey{UserID: user, VideoID: uuid.New(), SessionID: "s1"}
	keyB := GateKey{UserID: user, VideoID: uuid.New(), SessionID: "s1"}

	ok, err := gate.ShouldPersist(context.Background(), keyA, 50, 100)
	if err != nil || !ok {
		t.Fatalf("first sample on video A should persist, got %v, %v", ok, err)
	}
	// Switching to a different video starts from empty state again.
	ok, err = gate.ShouldPersist(context.Background(), keyB, 2, 100)
	if err != nil {
		t.Fatalf("ShouldPersist error: %v", err)
	}
	if ok {
		t.Fatalf("t=2s on a fresh video is below the engagement threshold")
	}
	ok, err = gate.ShouldPersist(context.Background(), keyB, 7, 100)
	if err != nil || !ok {
		t.Fatalf("t=7s on a fresh video should persist, got %v, %v", ok, err)
	}
}
