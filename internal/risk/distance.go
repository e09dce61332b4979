// Package risk implements the multi-layer risk scoring pipeline: a pure rule
// set over (enrolled profile, attempt, gathered signals), an aggregator that
// caps and explains the total, and the decision policy mapping scores to an
// access decision.
//
// Rules are pure functions. They never query providers, never raise, and
// encode absence of a signal as a zero contribution, so concurrent scoring
// passes share no state and rule order cannot change the total.
package risk

import "math"

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371

// DistanceKm computes the great-circle distance between two coordinates in
// kilometers using the haversine formula. Inputs are assumed to be validated
// lat/lon; NaN inputs propagate.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
