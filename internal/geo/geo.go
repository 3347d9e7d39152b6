package geo

import "math"

const earthRadiusMeters = 6371000

type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Fence is a circular geofence: center + radius.
type Fence struct {
	Lat          float64
	Lng          float64
	RadiusMeters float64
}

// Membership is the result of evaluating a position against a fence.
// Known is false when no position was available; in that state Inside
// and DistanceM carry no meaning and callers must not treat the worker
// as either inside or outside.
type Membership struct {
	Known     bool
	Inside    bool
	DistanceM float64
}

// Evaluate decides fence membership for pos. The boundary is inclusive:
// a position at exactly RadiusMeters from the center is inside.
func Evaluate(pos *Position, f Fence) Membership {
	if pos == nil {
		return Membership{}
	}
	d := HaversineMeters(pos.Lat, pos.Lng, f.Lat, f.Lng)
	return Membership{
		Known:     true,
		Inside:    d <= f.RadiusMeters,
		DistanceM: d,
	}
}

// HaversineMeters returns the great-circle distance between two
// coordinates in meters.
func HaversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}
