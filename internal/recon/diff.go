// Package recon compares the asset database against secondary inventories
// such as a DCIM export or a directory service. Comparison is by identifier
// only; the key function decides what counts as the identifier and may
// normalize it.
package recon

// Diff returns the keys present only in a and the keys present only in b.
// Duplicate keys within one side are reported once. Results come back in the
// order the owning side listed them.
func Diff[T any](a, b []T, key func(T) string) (onlyA, onlyB []string) {
	return oneSided(a, b, key), oneSided(b, a, key)
}

func oneSided[T any](have, other []T, key func(T) string) []string {
	present := make(map[string]bool, len(other))
	for _, item := range other {
		present[key(item)] = true
	}
	var out []string
	seen := make(map[string]bool, len(have))
	for _, item := range have {
		k := key(item)
		if present[k] || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
