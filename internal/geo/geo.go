// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package geo

import (
	"math"
	"time"

	"github.com/mhalvorsen/pelorus/internal/models"
)

// earthRadiusKm is the mean earth radius used for the spherical
// approximation.
const earthRadiusKm = 6371.0

// ZoneHit identifies one hazard zone an entity currently intersects.
type ZoneHit struct {
	ZoneID   string
	Kind     models.HazardKind
	Severity models.Severity
}

// Evaluate returns the zones the position currently intersects, considering
// only zones that are active and time-valid at the given instant. An empty
// result is the normal no-hazard case, not an error.
func Evaluate(pos models.Position, zones []*models.HazardZone, at time.Time) []ZoneHit {
	var hits []ZoneHit
	for _, z := range zones {
		if z == nil || !z.InEffect(at) {
			continue
		}
		if Contains(z, pos) {
			hits = append(hits, ZoneHit{ZoneID: z.ID, Kind: z.Kind, Severity: z.Severity})
		}
	}
	return hits
}

// Contains reports whether the position lies inside the zone's geometry.
// A zone with neither a usable polygon nor a circle matches nothing.
func Contains(z *models.HazardZone, pos models.Position) bool {
	switch {
	case z.IsPolygon():
		return PointInPolygon(pos, z.Polygon)
	case z.IsCircle():
		return Haversine(pos, *z.Center) <= z.RadiusKM
	default:
		return false
	}
}

// PointInPolygon tests membership via ray casting. The vertex ring is
// implicitly closed: the edge between the last and first vertex is tested
// like every explicit edge. Boundary points follow the half-open crossing
// rule, so a point on the ring's southern edge counts as inside. Rings
// with fewer than three vertices match nothing.
func PointInPolygon(p models.Position, ring []models.Position) bool {
	if len(ring) < 3 {
		return false
	}

	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		if ((ring[i].Lat > p.Lat) != (ring[j].Lat > p.Lat)) &&
			(p.Lon < (ring[j].Lon-ring[i].Lon)*(p.Lat-ring[i].Lat)/(ring[j].Lat-ring[i].Lat)+ring[i].Lon) {
			inside = !inside
		}
		j = i
	}
	return inside
}

// Haversine returns the great-circle distance between two positions in
// kilometers on a spherical earth.
func Haversine(a, b models.Position) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// NauticalMiles converts a haversine distance in kilometers to nautical
// miles, the unit AIS feeds report ranges in.
func NauticalMiles(km float64) float64 {
	return km / 1.852
}
