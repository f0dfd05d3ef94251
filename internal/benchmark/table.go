package benchmark

import "github.com/feever-health/feever/internal/model"

// DefaultRates is the built-in reference table, based on Philippine market
// averages. Table order encodes matching priority: more specific entries
// come before broader ones.
func DefaultRates() []model.Rate {
	return []model.Rate{
		{Code: "LAB-001", Description: "Urinalysis", Keywords: []string{"urinalysis"}, Rate: 100, MinRate: 50, MaxRate: 150},
		{Code: "LAB-002", Description: "CBC", Keywords: []string{"cbc"}, Rate: 300, MinRate: 180, MaxRate: 450},
		{Code: "LAB-003", Description: "Complete Blood Count", Keywords: []string{"complete blood count"}, Rate: 300, MinRate: 180, MaxRate: 450},
		{Code: "RAD-003", Description: "Chest and Lat Xray", Keywords: []string{"chest and lat", "lat xray", "lateral x-ray"}, Rate: 1750, MinRate: 1000, MaxRate: 2500},
		{Code: "RAD-001", Description: "Chest PA", Keywords: []string{"chest pa"}, Rate: 475, MinRate: 350, MaxRate: 600},
		{Code: "RAD-002", Description: "Chest X-Ray", Keywords: []string{"chest x-ray", "chest xray"}, Rate: 475, MinRate: 350, MaxRate: 600},
		{Code: "LAB-004", Description: "Antigen Test", Keywords: []string{"antigen"}, Rate: 750, MinRate: 600, MaxRate: 1000},
		{Code: "RAD-004", Description: "CT Scan", Keywords: []string{"ct scan", "ct-scan"}, Rate: 6000, MinRate: 4500, MaxRate: 8000},
	}
}
