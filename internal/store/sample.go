package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/logistics-locator/internal/domain"
)

// sampleNamespace scopes the name-derived IDs of the sample directory so
// reseeding produces the same IDs.
var sampleNamespace = uuid.MustParse("6f1c2b8e-5d0a-4c43-9a51-3e7f0d2c9b14")

type sampleRow struct {
	name, category, address, contact string
	lat, lon                         float64
}

var sampleRows = []sampleRow{
	{"Delhi Transport Services", "Truck Service", "Connaught Place, New Delhi, Delhi 110001", "+91-9876543210", 28.6315, 77.2167},
	{"Mumbai Cargo Services", "Cargo Service", "Bandra Kurla Complex, Mumbai, Maharashtra 400051", "+91-9876543211", 19.0596, 72.8295},
	{"Bangalore Delivery Network", "Delivery Service", "MG Road, Bangalore, Karnataka 560001", "+91-9876543212", 12.9716, 77.5946},
	{"Kolkata Transport Co.", "Transport Company", "Park Street, Kolkata, West Bengal 700016", "+91-9876543213", 22.5726, 88.3639},
	{"Chennai Fleet Management", "Fleet Management", "Anna Salai, Chennai, Tamil Nadu 600002", "+91-9876543214", 13.0827, 80.2707},
	{"Hyderabad Logistics Provider", "Logistics Provider", "Banjara Hills, Hyderabad, Telangana 500034", "+91-9876543215", 17.3850, 78.4867},
	{"Pune Shipping Services", "Shipping Service", "Koregaon Park, Pune, Maharashtra 411001", "+91-9876543216", 18.5204, 73.8567},
	{"Ahmedabad Freight Co.", "Freight Service", "C.G. Road, Ahmedabad, Gujarat 380009", "+91-9876543217", 23.0225, 72.5714},
	{"Jaipur Transport Hub", "Transport Hub", "C-Scheme, Jaipur, Rajasthan 302001", "+91-9876543218", 26.9124, 75.7873},
	{"Lucknow Vehicle Services", "Vehicle Service", "Hazratganj, Lucknow, Uttar Pradesh 226001", "+91-9876543219", 26.8467, 80.9462},
}

// SampleDirectory returns the demo directory of ten providers across India,
// stamped with now. IDs are stable across calls.
func SampleDirectory(now time.Time) []domain.DirectoryEntry {
	out := make([]domain.DirectoryEntry, 0, len(sampleRows))
	for _, r := range sampleRows {
		e := domain.DirectoryEntry{
			ID:        uuid.NewSHA1(sampleNamespace, []byte(r.name)).String(),
			Name:      r.name,
			Category:  r.category,
			Address:   r.address,
			Contact:   r.contact,
			Status:    domain.StatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		e.SetCoordinate(domain.Coordinate{Lat: r.lat, Lon: r.lon})
		out = append(out, e)
	}
	return out
}
