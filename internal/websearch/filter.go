package websearch

import "strings"

// FilterHosts keeps the first result of every display host and drops hosts
// containing any denylist keyword. Input order is preserved.
func FilterHosts(results []*Result, denylist []string) []*Result {
	seen := make(map[string]bool, len(results))
	kept := make([]*Result, 0, len(results))
	for _, r := range results {
		if r == nil || seen[r.DisplayHost] || denied(r.DisplayHost, denylist) {
			continue
		}
		seen[r.DisplayHost] = true
		kept = append(kept, r)
	}
	return kept
}

// HostAllowed reports whether host contains none of the denylist keywords.
func HostAllowed(host string, denylist []string) bool {
	return !denied(host, denylist)
}

func denied(host string, denylist []string) bool {
	for _, keyword := range denylist {
		if keyword == "" {
			continue
		}
		if strings.Contains(host, keyword) {
			return true
		}
	}
	return false
}
