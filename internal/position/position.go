// Package position supplies the truck's current location. The daemon only
// consumes the Provider interface; the GNSS stack itself stays external.
package position

import (
	"context"
	"time"
)

// Fix quality, mirroring the usual GNSS fix states.
const (
	QualityNone = "NONE"
	Quality2D   = "2D"
	Quality3D   = "3D"
)

// Fix is one position sample.
type Fix struct {
	Lat     float64
	Lon     float64
	Quality string
	Time    time.Time
}

// Provider returns the current position of the truck.
type Provider interface {
	Current(ctx context.Context) (Fix, error)
	Close() error
}

// waypoint is one corner of the simulated delivery route.
type waypoint struct {
	lat, lon float64
}

// A loop around the Toulouse ring road, roughly the demo route the
// scenario was written for.
var defaultRoute = []waypoint{
	{43.6045, 1.4440},
	{43.6335, 1.4180},
	{43.6520, 1.4430},
	{43.6290, 1.4890},
	{43.5880, 1.4750},
	{43.5790, 1.4280},
}

// legDuration is how long the simulated truck takes to drive one leg.
const legDuration = 2 * time.Minute

// SimProvider drives the default route in a loop, interpolating linearly
// between waypoints based on elapsed wall time.
type SimProvider struct {
	route []waypoint
	start time.Time
	now   func() time.Time
}

// NewSimProvider creates a simulated provider starting its route at start.
func NewSimProvider(start time.Time) *SimProvider {
	return &SimProvider{
		route: defaultRoute,
		start: start,
		now:   time.Now,
	}
}

// Current returns the interpolated position along the route.
func (p *SimProvider) Current(ctx context.Context) (Fix, error) {
	if err := ctx.Err(); err != nil {
		return Fix{}, err
	}

	now := p.now()
	elapsed := now.Sub(p.start)
	if elapsed < 0 {
		elapsed = 0
	}

	legs := len(p.route)
	leg := int(elapsed/legDuration) % legs
	frac := float64(elapsed%legDuration) / float64(legDuration)

	from := p.route[leg]
	to := p.route[(leg+1)%legs]

	return Fix{
		Lat:     from.lat + (to.lat-from.lat)*frac,
		Lon:     from.lon + (to.lon-from.lon)*frac,
		Quality: Quality3D,
		Time:    now,
	}, nil
}

// Close stops the provider. The simulated route holds no resources.
func (p *SimProvider) Close() error {
	return nil
}
