package protocol

import "testing"

func TestSpeedForWPMBounds(t *testing.T) {
	if got := SpeedForWPM(0); got != MaxSpeedMS {
		t.Fatalf("SpeedForWPM(0) = %d, want %d", got, MaxSpeedMS)
	}
	if got := SpeedForWPM(-5); got != MaxSpeedMS {
		t.Fatalf("SpeedForWPM(-5) = %d, want %d", got, MaxSpeedMS)
	}
	if got := SpeedForWPM(200); got != MinSpeedMS {
		t.Fatalf("SpeedForWPM(200) = %d, want %d", got, MinSpeedMS)
	}
	if got := SpeedForWPM(500); got != MinSpeedMS {
		t.Fatalf("SpeedForWPM(500) = %d, want %d", got, MinSpeedMS)
	}
}

func TestSpeedForWPMMonotonic(t *testing.T) {
	prev := SpeedForWPM(1)
	for wpm := 2.0; wpm <= 200; wpm++ {
		cur := SpeedForWPM(wpm)
		if cur > prev {
			t.Fatalf("speed not monotonic: speed(%v)=%d > speed(%v)=%d", wpm, cur, wpm-1, prev)
		}
		prev = cur
	}
}

func TestIntensityForSpeed(t *testing.T) {
	cases := []struct {
		ms   int
		want Intensity
	}{
		{0, IntensityIdle},
		{30, IntensitySlow},
		{79, IntensitySlow},
		{80, IntensityNormal},
		{149, IntensityNormal},
		{150, IntensityFast},
		{500, IntensityFast},
	}
	for _, tc := range cases {
		if got := IntensityForSpeed(tc.ms); got != tc.want {
			t.Fatalf("IntensityForSpeed(%d) = %v, want %v", tc.ms, got, tc.want)
		}
	}
}

func TestStreakTrackerEdgesOnly(t *testing.T) {
	var tr StreakTracker
	if tr.Update(40) != StreakNone {
		t.Fatal("no edge expected below threshold")
	}
	if tr.Update(70) != StreakRise {
		t.Fatal("expected rise crossing 65")
	}
	if tr.Update(90) != StreakNone {
		t.Fatal("rise must fire once, not every sample")
	}
	if !tr.Active() {
		t.Fatal("tracker should report active")
	}
	if tr.Update(64.9) != StreakFall {
		t.Fatal("expected fall dropping below 65")
	}
	if tr.Update(10) != StreakNone {
		t.Fatal("fall must fire once")
	}
}

func TestStreakThresholdInclusive(t *testing.T) {
	var tr StreakTracker
	if tr.Update(65) != StreakRise {
		t.Fatal("65 WPM exactly should raise the overlay")
	}
}
