// internal/hospitals/hospitals.go
package hospitals

import (
	"fmt"
	"sort"

	"silicoshield/internal/models"
)

// Nearby returns candidate facilities labeled relative to the location,
// sorted ascending by distance. The distances are canned; this stands in
// for a future geocoded search API (the haversine utility in the geo
// package is ready for that integration).
func Nearby(loc *models.LocationData) []models.Hospital {
	city := "your area"
	if loc != nil && loc.City != "" {
		city = loc.City
	}

	list := []models.Hospital{
		{
			Name:     "Pulmonary Care Center",
			Address:  fmt.Sprintf("Near %s", city),
			Phone:    "+1-XXX-XXX-XXXX",
			Distance: 2.3,
			Type:     "Pulmonology Specialist",
		},
		{
			Name:     "City Medical Center - Respiratory Unit",
			Address:  fmt.Sprintf("%s Medical District", city),
			Phone:    "+1-XXX-XXX-XXXX",
			Distance: 4.7,
			Type:     "General Hospital",
		},
		{
			Name:     "Occupational Health Clinic",
			Address:  fmt.Sprintf("Downtown %s", city),
			Phone:    "+1-XXX-XXX-XXXX",
			Distance: 5.2,
			Type:     "Occupational Medicine",
		},
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].Distance < list[j].Distance
	})
	return list
}
