package destination

import "strings"

// statusRules is evaluated in order; the first rule with a matching term wins.
// Severe terms come first so that "unsafe" is never read as "safe" and
// "unsafe, low visibility" is never read as "low".
var statusRules = []struct {
	terms  []string
	status Status
}{
	{[]string{"critical", "danger", "unsafe", "high"}, StatusRisky},
	{[]string{"caution", "warning", "moderate"}, StatusCaution},
	{[]string{"safe", "excellent", "low"}, StatusRecommended},
	{[]string{"closure", "stop"}, StatusNotRecommended},
}

// Classify maps a free-text status label to a Status.
// Empty or unrecognised labels yield StatusRecommended.
func Classify(rawLabel string) Status {
	s := strings.ToLower(rawLabel)
	for _, rule := range statusRules {
		for _, term := range rule.terms {
			if strings.Contains(s, term) {
				return rule.status
			}
		}
	}
	return StatusRecommended
}
