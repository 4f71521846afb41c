package pricing

// Validation is the outcome of comparing a contribution to the minimum price.
type Validation struct {
	OK    bool `json:"ok"`
	IsVIP bool `json:"is_vip"`
}

// Validate compares contribution against minimumTotal exactly. Paying the
// minimum is a standard booking, anything above it is VIP.
func Validate(contribution, minimumTotal int64) Validation {
	switch {
	case contribution < minimumTotal:
		return Validation{}
	case contribution == minimumTotal:
		return Validation{OK: true}
	default:
		return Validation{OK: true, IsVIP: true}
	}
}
