package probe

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
)

// Location is a WGS84 coordinate read from a video's location tag.
type Location struct {
	Latitude  float64
	Longitude float64
}

func (l Location) String() string {
	return fmt.Sprintf("%.4f,%.4f", l.Latitude, l.Longitude)
}

// iso6709 matches the decimal-degree form phones write, e.g. "+48.8584+002.2945/"
// or "+37.7749-122.4194+010.000/". Altitude is ignored.
var iso6709 = regexp.MustCompile(`^([+-]\d{1,2}(?:\.\d+)?)([+-]\d{1,3}(?:\.\d+)?)`)

// ParseISO6709 parses the leading latitude/longitude pair of an ISO 6709 string.
func ParseISO6709(value string) (Location, bool) {
	m := iso6709.FindStringSubmatch(value)
	if m == nil {
		return Location{}, false
	}
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil || lat < -90 || lat > 90 {
		return Location{}, false
	}
	lon, err := strconv.ParseFloat(m[2], 64)
	if err != nil || lon < -180 || lon > 180 {
		return Location{}, false
	}
	return Location{Latitude: lat, Longitude: lon}, true
}

// VideoLocation probes and parses the location tag of path.
func VideoLocation(ctx context.Context, p Prober, path string) (Location, bool, error) {
	value, ok, err := p.Tag(ctx, path, TagLocation)
	if err != nil || !ok {
		return Location{}, false, err
	}
	loc, ok := ParseISO6709(value)
	return loc, ok, nil
}
