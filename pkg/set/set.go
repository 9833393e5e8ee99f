// Package set provides small set operations over string identifiers.
//
// Reviewer reconciliation is defined entirely in terms of union and
// difference over GitHub logins, so these helpers collapse duplicates and
// keep first-seen order to make interactive lists and diffs deterministic.
package set

// Union returns every distinct element appearing in a or b.
// Order follows first appearance, a before b.
func Union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		result = append(result, s)
	}
	for _, s := range b {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		result = append(result, s)
	}

	return result
}

// Difference returns the elements of a that are absent from b.
// Duplicates in a are collapsed; order follows first appearance.
func Difference(a, b []string) []string {
	exclude := make(map[string]struct{}, len(b))
	for _, s := range b {
		exclude[s] = struct{}{}
	}

	seen := make(map[string]struct{}, len(a))
	result := make([]string, 0, len(a))
	for _, s := range a {
		if _, ok := exclude[s]; ok {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		result = append(result, s)
	}

	return result
}

// Contains reports whether needle is an element of haystack.
func Contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
