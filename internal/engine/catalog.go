package engine

import "telematics-monitor/internal/models"

// CatalogEntry is one vehicle of the fixed startup catalog.
type CatalogEntry struct {
	VehicleID    int
	MakeModel    string
	LicensePlate string
}

// DefaultCatalog returns the 20-vehicle fleet seeded at startup.
func DefaultCatalog() []CatalogEntry {
	names := []struct{ model, plate string }{
		{"Honda Civic", "ABC-123"}, {"Toyota Camry", "DEF-456"}, {"Ford F-150", "GHI-789"},
		{"BMW X3", "JKL-012"}, {"Tesla Model 3", "MNO-345"}, {"Chevrolet Silverado", "PQR-678"},
		{"Nissan Altima", "STU-901"}, {"Hyundai Elantra", "VWX-234"}, {"Mercedes C-Class", "YZA-567"},
		{"Audi A4", "BCD-890"}, {"Volkswagen Jetta", "EFG-123"}, {"Subaru Outback", "HIJ-456"},
		{"Mazda CX-5", "KLM-789"}, {"Jeep Wrangler", "NOP-012"}, {"Kia Sorento", "QRS-345"},
		{"Volvo XC90", "TUV-678"}, {"Lexus RX", "WXY-901"}, {"Acura MDX", "ZAB-234"},
		{"Infiniti Q50", "CDE-567"}, {"Cadillac Escalade", "FGH-890"},
	}
	entries := make([]CatalogEntry, 0, len(names))
	for i, n := range names {
		entries = append(entries, CatalogEntry{VehicleID: i + 1, MakeModel: n.model, LicensePlate: n.plate})
	}
	return entries
}

// DefaultGeofences returns the seed zone list. Only restricted zones produce
// anomalies; the open ones exist for informational queries.
func DefaultGeofences() []models.GeofenceZone {
	return []models.GeofenceZone{
		{Name: "Downtown Area", CenterLat: 40.7128, CenterLon: -74.0060, RadiusKM: 5.0, Restricted: false},
		{Name: "Industrial Zone", CenterLat: 40.6892, CenterLon: -74.0445, RadiusKM: 3.0, Restricted: true},
		{Name: "School Zone", CenterLat: 40.7589, CenterLon: -73.9851, RadiusKM: 1.0, Restricted: true},
		{Name: "Highway Rest Area", CenterLat: 40.7505, CenterLon: -73.9934, RadiusKM: 2.0, Restricted: false},
	}
}
