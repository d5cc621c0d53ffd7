package rolling

// Prior returns the elements strictly before index i, at most w of them.
// It is the only way the aggregator reads history, so the element at i is
// never part of its own window.
func Prior[T any](xs []T, i, w int) []T {
	if i <= 0 || w <= 0 {
		return nil
	}
	if i > len(xs) {
		i = len(xs)
	}
	start := i - w
	if start < 0 {
		start = 0
	}
	return xs[start:i]
}

// Mean averages the non-nil values and returns how many contributed.
// Returns nil when no value is present.
func Mean(values []*float64) (*float64, int) {
	var sum float64
	n := 0
	for _, v := range values {
		if v == nil {
			continue
		}
		sum += *v
		n++
	}
	if n == 0 {
		return nil, 0
	}
	mean := sum / float64(n)
	return &mean, n
}

// Count returns the number of present values as a float, nil when none are present.
func Count(values []*float64) *float64 {
	_, n := Mean(values)
	if n == 0 {
		return nil
	}
	c := float64(n)
	return &c
}
