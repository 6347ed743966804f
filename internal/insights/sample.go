package insights

import "math/rand"

// DefaultSampleSize and DefaultSeed bound and fix the questions sent for
// classification so repeated runs over the same data send the same prompt.
const (
	DefaultSampleSize = 30
	DefaultSeed       = 42
)

// Sample returns up to n items chosen without replacement by a generator
// seeded with seed. When n >= len(items) every item is returned, still in
// shuffled order.
func Sample(items []string, n int, seed int64) []string {
	if n <= 0 || len(items) == 0 {
		return []string{}
	}
	if n > len(items) {
		n = len(items)
	}
	r := rand.New(rand.NewSource(seed))
	perm := r.Perm(len(items))
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = items[perm[i]]
	}
	return out
}
