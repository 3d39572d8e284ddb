package facility

// Amenity sets are kept as ordered string slices with set semantics:
// membership checks on insert, insertion order preserved.

func containsAmenity(set []string, id string) bool {
	for _, v := range set {
		if v == id {
			return true
		}
	}
	return false
}

func cloneAmenities(src []string) []string {
	if len(src) == 0 {
		return nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// unionAmenities appends the members of src missing from dst, preserving
// the order both sides already have.
func unionAmenities(dst, src []string) []string {
	for _, v := range src {
		if !containsAmenity(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}

// toggleAmenity flips membership of id in set and reports whether the value
// was added (true) or removed (false).
func toggleAmenity(set []string, id string) ([]string, bool) {
	for i, v := range set {
		if v == id {
			return append(set[:i], set[i+1:]...), false
		}
	}
	return append(set, id), true
}
