package utils

// ToStringSlice keeps the string members of a decoded JSON array.
func ToStringSlice(slice []any) []string {
	stringSlice := make([]string, 0)
	for _, v := range slice {
		if s, ok := v.(string); ok {
			stringSlice = append(stringSlice, s)
		}
	}
	return stringSlice
}

// ClaimStrings reads a claim that may hold a []any, a []string or nothing.
func ClaimStrings(v any) []string {
	switch vals := v.(type) {
	case []any:
		return ToStringSlice(vals)
	case []string:
		return vals
	}
	return nil
}

// Intersect returns the members of requested that are also in base, in
// requested order and without duplicates.
func Intersect(base, requested []string) []string {
	allowed := make(map[string]struct{}, len(base))
	for _, b := range base {
		allowed[b] = struct{}{}
	}
	out := make([]string, 0, len(requested))
	for _, r := range requested {
		if _, ok := allowed[r]; ok {
			out = append(out, r)
			delete(allowed, r)
		}
	}
	return out
}
