package trend

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/couchcryptid/case-trend-service/internal/domain"
)

// Defaults used when training configuration leaves the split unset.
const (
	DefaultTestFraction = 0.2
	DefaultSeed         = 42
)

// Split shuffles features deterministically by seed and holds out
// ceil(testFraction*n) of them for evaluation. Both halves are returned in
// offset order. ok is false when the split would leave fewer than two
// training samples or no test samples; callers then train and evaluate on
// the full set.
func Split(features []domain.FeatureVector, testFraction float64, seed uint64) (train, test []domain.FeatureVector, ok bool) {
	n := len(features)
	if testFraction <= 0 || testFraction >= 1 {
		return features, nil, false
	}
	nTest := int(math.Ceil(testFraction * float64(n)))
	if nTest < 1 || n-nTest < 2 {
		return features, nil, false
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	perm := rng.Perm(n)

	test = make([]domain.FeatureVector, 0, nTest)
	train = make([]domain.FeatureVector, 0, n-nTest)
	for i, idx := range perm {
		if i < nTest {
			test = append(test, features[idx])
		} else {
			train = append(train, features[idx])
		}
	}
	byOffset(train)
	byOffset(test)
	return train, test, true
}

func byOffset(fs []domain.FeatureVector) {
	sort.SliceStable(fs, func(i, j int) bool { return fs[i].OffsetDays < fs[j].OffsetDays })
}
