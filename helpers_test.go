package emsort_test

import (
	"encoding/binary"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/spf13/afero"
)

// writeValues stores vals at path in the native int64 format
func writeValues(t *testing.T, fs afero.Fs, path string, vals []int64) {
	t.Helper()
	raw := make([]byte, len(vals)*8)
	for i, v := range vals {
		binary.NativeEndian.PutUint64(raw[i*8:], uint64(v))
	}
	if err := afero.WriteFile(fs, path, raw, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// readValues loads every whole int64 stored at path
func readValues(t *testing.T, fs afero.Fs, path string) []int64 {
	t.Helper()
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	vals := make([]int64, len(raw)/8)
	for i := range vals {
		vals[i] = int64(binary.NativeEndian.Uint64(raw[i*8:]))
	}
	return vals
}

func shuffled(n int, seed uint64) []int64 {
	vals := make([]int64, n)
	for i := range vals {
		vals[i] = int64(i)
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	rng.Shuffle(n, func(i, j int) { vals[i], vals[j] = vals[j], vals[i] })
	return vals
}

func ascending(n int) []int64 {
	vals := make([]int64, n)
	for i := range vals {
		vals[i] = int64(i)
	}
	return vals
}

// assertSortedPermutation fails unless got is in order and holds exactly the values of in
func assertSortedPermutation(t *testing.T, in, got []int64) {
	t.Helper()
	if len(got) != len(in) {
		t.Fatalf("output has %d elements, want %d", len(got), len(in))
	}
	if !slices.IsSorted(got) {
		t.Fatalf("output is not sorted")
	}
	want := slices.Clone(in)
	slices.Sort(want)
	if !slices.Equal(got, want) {
		t.Fatalf("output is not a permutation of the input")
	}
}
