package filter_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AmrMurad1/plfsio/internal/filter"
)

func TestBuilderMatchesAddedKeys(t *testing.T) {
	b := filter.NewBuilder(1000, 10)
	keys := make([][]byte, 1000)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("key-%06d", i))
		b.AddKey(keys[i])
	}
	encoded := b.Finish()

	for _, k := range keys {
		require.True(t, filter.MayMatch(k, encoded))
	}
}

func TestFalsePositiveRateWithinTolerance(t *testing.T) {
	const n = 10000
	b := filter.NewBuilder(n, 10)
	rng := rand.New(rand.NewSource(42))
	present := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		k := make([]byte, 16)
		_, _ = rng.Read(k)
		present[string(k)] = true
		b.AddKey(k)
	}
	encoded := b.Finish()

	const probes = 100000
	fp := 0
	for i := 0; i < probes; i++ {
		k := make([]byte, 16)
		_, _ = rng.Read(k)
		if present[string(k)] {
			continue
		}
		if filter.MayMatch(k, encoded) {
			fp++
		}
	}
	rate := float64(fp) / float64(probes)
	require.Less(t, rate, 0.05, "false-positive rate too high: %f", rate)
}

func TestMayMatchForwardCompatibility(t *testing.T) {
	require.True(t, filter.MayMatch([]byte("x"), nil))
	require.True(t, filter.MayMatch([]byte("x"), []byte{0x01}))

	bad := append(make([]byte, 8), 31) // k > 30
	require.True(t, filter.MayMatch([]byte("x"), bad))
}
