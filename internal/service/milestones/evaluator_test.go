package milestones

import (
	"reflect"
	"testing"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		streak  uint
		awarded map[uint]bool
		want    []Unlock
	}{
		{
			name:   "below first milestone",
			streak: 6,
			want:   nil,
		},
		{
			name:   "exactly at first milestone",
			streak: 7,
			want: []Unlock{
				{Milestone: 7, BonusPoints: 1000, BoxGranted: true},
			},
		},
		{
			name:    "milestone already awarded",
			streak:  7,
			awarded: map[uint]bool{7: true},
			want:    nil,
		},
		{
			name:   "skipped milestones collected in order",
			streak: 15,
			want: []Unlock{
				{Milestone: 7, BonusPoints: 1000, BoxGranted: true},
				{Milestone: 14, BonusPoints: 2500, BoxGranted: false},
			},
		},
		{
			name:    "streak 100 with earlier awards yields only 100",
			streak:  100,
			awarded: map[uint]bool{7: true, 14: true, 30: true, 50: true},
			want: []Unlock{
				{Milestone: 100, BonusPoints: 25000, BoxGranted: true},
			},
		},
		{
			name:    "everything already awarded",
			streak:  365,
			awarded: map[uint]bool{7: true, 14: true, 30: true, 50: true, 100: true, 200: true, 365: true},
			want:    nil,
		},
		{
			name:   "full sweep at 365",
			streak: 365,
			want: []Unlock{
				{Milestone: 7, BonusPoints: 1000, BoxGranted: true},
				{Milestone: 14, BonusPoints: 2500, BoxGranted: false},
				{Milestone: 30, BonusPoints: 5000, BoxGranted: true},
				{Milestone: 50, BonusPoints: 10000, BoxGranted: false},
				{Milestone: 100, BonusPoints: 25000, BoxGranted: true},
				{Milestone: 200, BonusPoints: 50000, BoxGranted: false},
				{Milestone: 365, BonusPoints: 100000, BoxGranted: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.streak, tt.awarded)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Evaluate(%d) = %+v, want %+v", tt.streak, got, tt.want)
			}
		})
	}
}

func TestThresholds(t *testing.T) {
	want := []uint{7, 14, 30, 50, 100, 200, 365}
	got := Thresholds()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Thresholds() = %v, want %v", got, want)
	}

	// Returned slice must be a copy.
	got[0] = 99
	if Thresholds()[0] != 7 {
		t.Error("Thresholds() exposed internal state")
	}
}

func TestNext(t *testing.T) {
	tests := []struct {
		streak uint
		want   uint
	}{
		{0, 7},
		{6, 7},
		{7, 14},
		{100, 200},
		{364, 365},
		{365, 0},
		{1000, 0},
	}

	for _, tt := range tests {
		if got := Next(tt.streak); got != tt.want {
			t.Errorf("Next(%d) = %d, want %d", tt.streak, got, tt.want)
		}
	}
}
