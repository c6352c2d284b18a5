package model

import "testing"

func TestEventType_IsValid(t *testing.T) {
	for _, tc := range []struct {
		typ  EventType
		want bool
	}{
		{EventOnEntry, true},
		{EventOnExit, true},
		{EventType(""), false},
		{EventType("OnEntry"), false},
	} {
		if got := tc.typ.IsValid(); got != tc.want {
			t.Errorf("EventType(%q).IsValid() = %v, want %v", tc.typ, got, tc.want)
		}
	}
}

func TestAuthorizationLevel_Rank(t *testing.T) {
	ordered := []AuthorizationLevel{
		AuthorizationNotDetermined,
		AuthorizationDenied,
		AuthorizationWhenInUse,
		AuthorizationAlways,
	}
	for i, level := range ordered {
		if got := level.Rank(); got != i {
			t.Errorf("%s.Rank() = %d, want %d", level, got, i)
		}
		if !level.IsValid() {
			t.Errorf("%s.IsValid() = false, want true", level)
		}
	}
	if AuthorizationLevel("bogus").IsValid() {
		t.Error(`AuthorizationLevel("bogus").IsValid() = true, want false`)
	}
}

func TestAuthorizationLevel_AllowsRegionMonitoring(t *testing.T) {
	for _, tc := range []struct {
		level AuthorizationLevel
		want  bool
	}{
		{AuthorizationNotDetermined, false},
		{AuthorizationDenied, false},
		{AuthorizationWhenInUse, false},
		{AuthorizationAlways, true},
	} {
		if got := tc.level.AllowsRegionMonitoring(); got != tc.want {
			t.Errorf("%s.AllowsRegionMonitoring() = %v, want %v", tc.level, got, tc.want)
		}
	}
}

func TestRegionFor(t *testing.T) {
	g := Geotification{
		Identifier: "home",
		Coordinate: Coordinate{Latitude: 37.33, Longitude: -122.03},
		Radius:     500,
		Note:       "Welcome home",
		EventType:  EventOnEntry,
	}

	r := RegionFor(g)
	if r.Identifier != "home" || r.Radius != 500 || r.Center != g.Coordinate {
		t.Errorf("RegionFor copied wrong geometry: %+v", r)
	}
	if !r.NotifyOnEntry || r.NotifyOnExit {
		t.Errorf("on_entry region: entry=%v exit=%v, want true/false", r.NotifyOnEntry, r.NotifyOnExit)
	}

	g.EventType = EventOnExit
	r = RegionFor(g)
	if r.NotifyOnEntry || !r.NotifyOnExit {
		t.Errorf("on_exit region: entry=%v exit=%v, want false/true", r.NotifyOnEntry, r.NotifyOnExit)
	}
}

func TestCoordinate_IsValid(t *testing.T) {
	for _, tc := range []struct {
		name string
		c    Coordinate
		want bool
	}{
		{"Origin", Coordinate{0, 0}, true},
		{"Corners", Coordinate{90, 180}, true},
		{"NegativeCorners", Coordinate{-90, -180}, true},
		{"LatTooHigh", Coordinate{90.1, 0}, false},
		{"LonTooLow", Coordinate{0, -180.5}, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.c.IsValid(); got != tc.want {
				t.Errorf("IsValid() = %v, want %v", got, tc.want)
			}
		})
	}
}
