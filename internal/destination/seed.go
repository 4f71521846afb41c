package destination

// LiveDestinationID is the destination refreshed from the sensor feed.
const LiveDestinationID = "demo-place-live"

// Seed returns the static destination catalogue. Exactly one record is live.
// Statuses come from the same classifier the live feed uses.
func Seed() []Destination {
	return []Destination{
		{
			ID:          LiveDestinationID,
			Name:        "Campus Eco Lab",
			Country:     "India",
			Description: "Sensor-instrumented demo site streaming sound and soil stress readings.",
			Tags:        []string{"Live", "Sensors", "Demo"},
			Status:      Classify("Safe"),
			Metrics: MetricSet{
				AirQualityAQI: 20, WaterPPM: 50, SoilPPM: 12, NoiseDB: 30,
				CrowdDensity: 0.2, InfraLoad: 20, Temperature: 27, EcoStress: 18,
			},
			LocalSignals:   []string{"Stable Environment"},
			BaseCostPerDay: 100,
			Live:           true,
			Guides: []Guide{
				{ID: "g0", Name: "Priya N.", Languages: []string{"Hindi", "English"}, PricePerDay: 60, SustainabilityCertified: true},
			},
		},
		{
			ID:          "lofoten-norway",
			Name:        "Lofoten Islands",
			Country:     "Norway",
			Description: "Dramatic mountains, open sea, and sheltered bays in the Arctic Circle.",
			Tags:        []string{"Nature", "Arctic", "Sustainable"},
			Status:      Classify("Excellent"),
			Metrics: MetricSet{
				AirQualityAQI: 12, WaterPPM: 35, SoilPPM: 10, NoiseDB: 32,
				CrowdDensity: 0.1, InfraLoad: 15, Temperature: 8, EcoStress: 12,
			},
			LocalSignals:   []string{"Limited parking at Reinebringen - use local shuttles", "Northern lights peak activity forecasted"},
			BaseCostPerDay: 190,
			Guides: []Guide{
				{ID: "g4", Name: "Ingrid L.", Languages: []string{"Norwegian", "English"}, PricePerDay: 180, SustainabilityCertified: true},
			},
		},
		{
			ID:          "azores-portugal",
			Name:        "Azores",
			Country:     "Portugal",
			Description: "One of the world's most sustainable tourism destinations.",
			Tags:        []string{"Volcanic", "Sustainable", "Whales"},
			Status:      Classify("Low impact"),
			Metrics: MetricSet{
				AirQualityAQI: 18, WaterPPM: 42, SoilPPM: 25, NoiseDB: 38,
				CrowdDensity: 0.2, InfraLoad: 22, Temperature: 19, EcoStress: 20,
			},
			LocalSignals:   []string{"Whale migration season - extra boat regulations in effect"},
			BaseCostPerDay: 85,
			Guides: []Guide{
				{ID: "g5", Name: "Manuel S.", Languages: []string{"Portuguese", "English"}, PricePerDay: 90, SustainabilityCertified: true},
			},
		},
		{
			ID:          "faroe-islands",
			Name:        "Faroe Islands",
			Country:     "Denmark",
			Description: "Pristine islands focused on preservation over volume.",
			Tags:        []string{"Rugged", "Islands", "Eco"},
			Status:      Classify("Safe"),
			Metrics: MetricSet{
				AirQualityAQI: 14, WaterPPM: 28, SoilPPM: 15, NoiseDB: 35,
				CrowdDensity: 0.15, InfraLoad: 18, Temperature: 10, EcoStress: 15,
			},
			LocalSignals:   []string{"Road closures for sheep migration expected next week"},
			BaseCostPerDay: 120,
			Guides: []Guide{
				{ID: "g6", Name: "Erik H.", Languages: []string{"Faroese", "English", "Danish"}, PricePerDay: 180, SustainabilityCertified: true},
			},
		},
		{
			ID:          "kyoto-japan",
			Name:        "Kyoto",
			Country:     "Japan",
			Description: "High seasonal demand puts stress on local spiritual sites.",
			Tags:        []string{"Temples", "Nature", "Seasonal"},
			Status:      Classify("Moderate crowding"),
			Metrics: MetricSet{
				AirQualityAQI: 65, WaterPPM: 150, SoilPPM: 80, NoiseDB: 68,
				CrowdDensity: 1.5, InfraLoad: 75, Temperature: 22, EcoStress: 55,
			},
			LocalSignals:   []string{"Cherry blossom peak crowds reported"},
			BaseCostPerDay: 110,
			Guides: []Guide{
				{ID: "g3", Name: "Kenji S.", Languages: []string{"Japanese", "English"}, PricePerDay: 150, SustainabilityCertified: true},
			},
		},
		{
			ID:          "venice-italy",
			Name:        "Venice",
			Country:     "Italy",
			Description: "Facing extreme climate risks and overwhelming crowd pressure.",
			Tags:        []string{"Cultural", "Historic", "Overcrowded"},
			Status:      Classify("Stop: overtourism"),
			Metrics: MetricSet{
				AirQualityAQI: 145, WaterPPM: 850, SoilPPM: 420, NoiseDB: 82,
				CrowdDensity: 3.8, InfraLoad: 95, Temperature: 24, EcoStress: 88,
			},
			LocalSignals:   []string{"Heavy congestion alert in St. Mark's Square", "High tide warning (Acqua Alta)"},
			BaseCostPerDay: 130,
			Guides: []Guide{
				{ID: "g1", Name: "Alessandro V.", Languages: []string{"Italian", "English"}, PricePerDay: 120, SustainabilityCertified: true},
				{ID: "gp1", Name: "Isabella R.", Languages: []string{"Italian", "English", "German"}, PricePerDay: 250, SustainabilityCertified: true, PremiumOnly: true},
			},
		},
		{
			ID:          "santorini-greece",
			Name:        "Santorini",
			Country:     "Greece",
			Description: "Iconic views but severe water scarcity and tourism fatigue.",
			Tags:        []string{"Luxury", "Views", "Stressed"},
			Status:      Classify("Closure: water rationing"),
			Metrics: MetricSet{
				AirQualityAQI: 120, WaterPPM: 950, SoilPPM: 310, NoiseDB: 94,
				CrowdDensity: 4.2, InfraLoad: 98, Temperature: 29, EcoStress: 92,
			},
			LocalSignals:   []string{"Water rationing in effect for summer season"},
			BaseCostPerDay: 180,
			Guides: []Guide{
				{ID: "g7", Name: "Eleni K.", Languages: []string{"Greek", "English"}, PricePerDay: 110},
			},
		},
	}
}
