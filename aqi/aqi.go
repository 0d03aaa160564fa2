// Package aqi names US EPA Air Quality Index categories.
package aqi

import "math"

// Category is a band of the AQI scale.
type Category struct {
	Name       string
	UpperIndex int
}

var categories = []Category{
	{"Good", 50},
	{"Moderate", 100},
	{"Unhealthy for Sensitive Groups", 150},
	{"Unhealthy", 200},
	{"Very Unhealthy", 300},
	{"Hazardous", math.MaxInt},
}

// Classify returns the category containing the given AQI. Fractional values,
// such as means, are rounded to the nearest integer index first.
func Classify(aqi float64) Category {
	idx := int(math.Round(aqi))
	for _, c := range categories {
		if idx <= c.UpperIndex {
			return c
		}
	}
	return categories[len(categories)-1]
}

func String(aqi float64) string {
	return Classify(aqi).Name
}
