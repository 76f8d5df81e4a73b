package probe

import "testing"

func TestParseISO6709(t *testing.T) {
	tests := []struct {
		input string
		lat   float64
		lon   float64
		ok    bool
	}{
		{"+48.8584+002.2945/", 48.8584, 2.2945, true},
		{"+37.7749-122.4194+010.000/", 37.7749, -122.4194, true},
		{"-33.8688+151.2093/", -33.8688, 151.2093, true},
		{"", 0, 0, false},
		{"paris", 0, 0, false},
		{"+95.0000+002.0000/", 0, 0, false},
	}

	for _, tt := range tests {
		loc, ok := ParseISO6709(tt.input)
		if ok != tt.ok {
			t.Errorf("ParseISO6709(%q): expected ok=%v, got %v", tt.input, tt.ok, ok)
			continue
		}
		if ok && (loc.Latitude != tt.lat || loc.Longitude != tt.lon) {
			t.Errorf("ParseISO6709(%q): expected %v,%v got %v", tt.input, tt.lat, tt.lon, loc)
		}
	}
}
