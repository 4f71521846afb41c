package booking

// Tier is a loyalty level derived from cumulative eco points.
type Tier string

const (
	TierGreenExplorer Tier = "Green Explorer"
	TierEarthGuardian Tier = "Earth Guardian"
	TierPlanetPartner Tier = "Planet Partner"
)

var tierThresholds = []struct {
	min  int64
	tier Tier
}{
	{5000, TierPlanetPartner},
	{1000, TierEarthGuardian},
	{0, TierGreenExplorer},
}

// TierFor returns the tier for a point total.
func TierFor(points int64) Tier {
	for _, t := range tierThresholds {
		if points >= t.min {
			return t.tier
		}
	}
	return TierGreenExplorer
}

// Profile is a user's loyalty standing.
type Profile struct {
	UserID       string `json:"user_id"`
	EcoPoints    int64  `json:"eco_points"`
	Tier         Tier   `json:"tier"`
	NextTier     Tier   `json:"next_tier,omitempty"`
	PointsToNext int64  `json:"points_to_next,omitempty"`
}

func newProfile(userID string, points int64) Profile {
	p := Profile{UserID: userID, EcoPoints: points, Tier: TierFor(points)}
	for i := len(tierThresholds) - 1; i >= 0; i-- {
		if t := tierThresholds[i]; t.min > points {
			p.NextTier = t.tier
			p.PointsToNext = t.min - points
			break
		}
	}
	return p
}
