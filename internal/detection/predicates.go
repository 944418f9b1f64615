package detection

import "github.com/Dakheel-code/arena-run-sub001/internal/domain"

func knownCountry(c string) bool {
	return c != "" && c != domain.UnknownCountry
}

// countryChanged returns the first prior known country that differs from current.
func countryChanged(current string, prior []domain.WatchSession, excludeID string) (string, bool) {
	if !knownCountry(current) {
		return "", false
	}
	for _, s := range prior {
		if s.ID == excludeID || !knownCountry(s.Country) {
			continue
		}
		if s.Country != current {
			return s.Country, true
		}
	}
	return "", false
}

func ipChanged(current string, prior []domain.WatchSession, excludeID string) (string, bool) {
	if current == "" {
		return "", false
	}
	for _, s := range prior {
		if s.ID == excludeID || s.IPAddress == "" {
			continue
		}
		if s.IPAddress != current {
			return s.IPAddress, true
		}
	}
	return "", false
}

// excessiveViewsDue fires at threshold and every interval views after it.
func excessiveViewsDue(count int64, threshold, interval int) bool {
	if threshold < 1 {
		threshold = 1
	}
	if interval < 1 {
		interval = 1
	}
	if count < int64(threshold) {
		return false
	}
	return (count-int64(threshold))%int64(interval) == 0
}

// distinctAgents lists the unique non-empty user agents, current first.
func distinctAgents(current string, prior []domain.WatchSession, excludeID string) []string {
	seen := make(map[string]struct{}, len(prior)+1)
	out := make([]string, 0, len(prior)+1)
	add := func(ua string) {
		if ua == "" {
			return
		}
		if _, ok := seen[ua]; ok {
			return
		}
		seen[ua] = struct{}{}
		out = append(out, ua)
	}
	add(current)
	for _, s := range prior {
		if s.ID == excludeID {
			continue
		}
		add(s.UserAgent)
	}
	return out
}

// inOddHours reports start <= hour < end, wrapping past midnight when start > end.
func inOddHours(hour, start, end int) bool {
	switch {
	case start == end:
		return false
	case start < end:
		return hour >= start && hour < end
	default:
		return hour >= start || hour < end
	}
}
