package position

import (
	"context"
	"testing"
	"time"
)

func TestSimProviderAtStart(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	p := NewSimProvider(start)
	p.now = func() time.Time { return start }

	fix, err := p.Current(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fix.Lat != defaultRoute[0].lat || fix.Lon != defaultRoute[0].lon {
		t.Errorf("expected first waypoint, got (%v, %v)", fix.Lat, fix.Lon)
	}
	if fix.Quality != Quality3D {
		t.Errorf("expected 3D fix, got %s", fix.Quality)
	}
}

func TestSimProviderInterpolates(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	p := NewSimProvider(start)
	p.now = func() time.Time { return start.Add(legDuration / 2) }

	fix, err := p.Current(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantLat := (defaultRoute[0].lat + defaultRoute[1].lat) / 2
	wantLon := (defaultRoute[0].lon + defaultRoute[1].lon) / 2
	if diff := fix.Lat - wantLat; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("lat: got %v, want %v", fix.Lat, wantLat)
	}
	if diff := fix.Lon - wantLon; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("lon: got %v, want %v", fix.Lon, wantLon)
	}
}

func TestSimProviderLoops(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	p := NewSimProvider(start)
	// One full loop plus half a leg lands mid-first-leg again.
	p.now = func() time.Time {
		return start.Add(time.Duration(len(defaultRoute))*legDuration + legDuration/2)
	}

	fix, err := p.Current(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantLat := (defaultRoute[0].lat + defaultRoute[1].lat) / 2
	if diff := fix.Lat - wantLat; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("route should loop: got lat %v, want %v", fix.Lat, wantLat)
	}
}

func TestSimProviderCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewSimProvider(time.Now())
	if _, err := p.Current(ctx); err == nil {
		t.Error("expected error on canceled context")
	}
}
