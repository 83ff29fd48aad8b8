package emsort_test

import (
	"context"
	"errors"
	"os"
	"slices"
	"testing"

	"github.com/spf13/afero"

	"github.com/lanrat/emsort"
	"github.com/lanrat/emsort/blockstore"
)

func newSorter(t *testing.T, config *emsort.Config) *emsort.Sorter {
	t.Helper()
	s, err := emsort.New(config)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func sortValues(t *testing.T, config *emsort.Config, vals []int64) ([]int64, emsort.Result) {
	t.Helper()
	if config.Fs == nil {
		config.Fs = afero.NewMemMapFs()
	}
	writeValues(t, config.Fs, "/in.bin", vals)
	res, err := newSorter(t, config).Sort(context.Background(), "/in.bin", "/out.bin", 0)
	if err != nil {
		t.Fatalf("Sort: %v", err)
	}
	return readValues(t, config.Fs, "/out.bin"), res
}

// TestSmallInputInMemory sorts an input that fits in memory with one read and one write
func TestSmallInputInMemory(t *testing.T) {
	in := []int64{5, 3, 1, 4, 2}
	for _, mode := range []emsort.Mode{emsort.MergeMode, emsort.QuickMode} {
		got, res := sortValues(t, &emsort.Config{MemoryBudget: 5, Mode: mode}, in)
		if !slices.Equal(got, []int64{1, 2, 3, 4, 5}) {
			t.Fatalf("%s: got %v", mode, got)
		}
		if res.Stats.Reads != 1 || res.Stats.Writes != 1 {
			t.Fatalf("%s: got %d reads and %d writes, want 1 and 1", mode, res.Stats.Reads, res.Stats.Writes)
		}
		if res.Elements != 5 {
			t.Fatalf("%s: got %d elements", mode, res.Elements)
		}
	}
}

// TestMergeSortShuffled sorts 10,000 values with a budget far below a block
func TestMergeSortShuffled(t *testing.T) {
	in := shuffled(10000, 1)
	got, res := sortValues(t, &emsort.Config{MemoryBudget: 100, Arity: 4}, in)
	assertSortedPermutation(t, in, got)

	// 20 one-block runs: input read, runs written, runs read, output written
	want := blockstore.Stats{Reads: 40, Writes: 40}
	if res.Stats != want {
		t.Fatalf("got %+v, want %+v", res.Stats, want)
	}
}

// TestRunTransferCost charges run loads and stores once per run by default
// and once per block with PerBlockRunIO
func TestRunTransferCost(t *testing.T) {
	in := shuffled(10000, 12)
	cases := []struct {
		name     string
		perBlock bool
		want     blockstore.Stats
	}{
		// 5 runs of up to 4 blocks, 20 blocks in total
		{"per run", false, blockstore.Stats{Reads: 5 + 20, Writes: 5 + 20}},
		{"per block", true, blockstore.Stats{Reads: 20 + 20, Writes: 20 + 20}},
	}
	for _, c := range cases {
		got, res := sortValues(t, &emsort.Config{MemoryBudget: 2048, Arity: 4, PerBlockRunIO: c.perBlock}, in)
		assertSortedPermutation(t, in, got)
		if res.Stats != c.want {
			t.Fatalf("%s: got %+v, want %+v", c.name, res.Stats, c.want)
		}
	}

	// a multi-block input sorted in memory
	_, res := sortValues(t, &emsort.Config{MemoryBudget: 10000}, in)
	if want := (blockstore.Stats{Reads: 1, Writes: 1}); res.Stats != want {
		t.Fatalf("in memory: got %+v, want %+v", res.Stats, want)
	}
	_, res = sortValues(t, &emsort.Config{MemoryBudget: 10000, PerBlockRunIO: true}, in)
	if want := (blockstore.Stats{Reads: 20, Writes: 20}); res.Stats != want {
		t.Fatalf("in memory per block: got %+v, want %+v", res.Stats, want)
	}
}

func TestMergeSortMultiPass(t *testing.T) {
	in := shuffled(10000, 2)
	got, multi := sortValues(t, &emsort.Config{MemoryBudget: 100, Arity: 4, MultiPassMerge: true}, in)
	assertSortedPermutation(t, in, got)

	_, single := sortValues(t, &emsort.Config{MemoryBudget: 100, Arity: 4}, in)
	if multi.TotalIO() <= single.TotalIO() {
		t.Fatalf("multi pass cost %d, single pass cost %d", multi.TotalIO(), single.TotalIO())
	}
}

func TestMergeSortSmallBlocks(t *testing.T) {
	for _, arity := range []int{2, 3, 7, 16} {
		in := shuffled(3001, uint64(arity))
		got, _ := sortValues(t, &emsort.Config{BlockSize: 64, MemoryBudget: 50, Arity: arity, MultiPassMerge: arity%2 == 1}, in)
		assertSortedPermutation(t, in, got)
	}
}

// TestQuickSortAscending sorts input that is already in order
func TestQuickSortAscending(t *testing.T) {
	in := ascending(5000)
	got, _ := sortValues(t, &emsort.Config{MemoryBudget: 100, Arity: 2, Mode: emsort.QuickMode, Seed: 7}, in)
	assertSortedPermutation(t, in, got)
}

func TestQuickSortShuffled(t *testing.T) {
	for _, arity := range []int{2, 3, 5, 8} {
		in := shuffled(4000, uint64(arity))
		got, _ := sortValues(t, &emsort.Config{BlockSize: 128, MemoryBudget: 64, Arity: arity, Mode: emsort.QuickMode, Seed: 11}, in)
		assertSortedPermutation(t, in, got)
	}
}

// TestQuickSortAllEqual must not recurse forever on a single repeated value
func TestQuickSortAllEqual(t *testing.T) {
	in := make([]int64, 3000)
	for i := range in {
		in[i] = 42
	}
	got, _ := sortValues(t, &emsort.Config{MemoryBudget: 100, Arity: 3, Mode: emsort.QuickMode, Seed: 3}, in)
	assertSortedPermutation(t, in, got)
}

func TestQuickSortFewDistinct(t *testing.T) {
	in := make([]int64, 3000)
	for i := range in {
		in[i] = int64(i % 2)
	}
	for seed := uint64(1); seed <= 5; seed++ {
		got, _ := sortValues(t, &emsort.Config{MemoryBudget: 100, Arity: 2, Mode: emsort.QuickMode, Seed: seed}, in)
		assertSortedPermutation(t, in, got)
	}
}

func TestQuickSortNegativeAndExtremes(t *testing.T) {
	in := shuffled(2000, 9)
	for i := range in {
		in[i] -= 1000
	}
	in[10] = -1 << 63
	in[20] = 1<<63 - 1
	got, _ := sortValues(t, &emsort.Config{BlockSize: 64, MemoryBudget: 40, Arity: 4, Mode: emsort.QuickMode, Seed: 5}, in)
	assertSortedPermutation(t, in, got)
}

// TestSortIdempotent sorts the output of a sort again
func TestSortIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	in := shuffled(2500, 4)
	writeValues(t, fs, "/in.bin", in)
	for _, mode := range []emsort.Mode{emsort.MergeMode, emsort.QuickMode} {
		s := newSorter(t, &emsort.Config{Fs: fs, MemoryBudget: 200, Arity: 3, Mode: mode, Seed: 1})
		if _, err := s.Sort(context.Background(), "/in.bin", "/once.bin", 0); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Sort(context.Background(), "/once.bin", "/twice.bin", 0); err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(readValues(t, fs, "/once.bin"), readValues(t, fs, "/twice.bin")) {
			t.Fatalf("%s: sorting sorted output changed it", mode)
		}
	}
}

func TestMergeSortDeterministicIO(t *testing.T) {
	in := shuffled(6000, 5)
	_, first := sortValues(t, &emsort.Config{MemoryBudget: 300, Arity: 5}, in)
	_, second := sortValues(t, &emsort.Config{MemoryBudget: 300, Arity: 5}, in)
	if first.Stats != second.Stats {
		t.Fatalf("first %+v, second %+v", first.Stats, second.Stats)
	}
}

func TestQuickSortSeedReproducible(t *testing.T) {
	in := shuffled(6000, 6)
	_, first := sortValues(t, &emsort.Config{MemoryBudget: 300, Arity: 3, Mode: emsort.QuickMode, Seed: 99}, in)
	_, second := sortValues(t, &emsort.Config{MemoryBudget: 300, Arity: 3, Mode: emsort.QuickMode, Seed: 99}, in)
	if first.Stats != second.Stats {
		t.Fatalf("first %+v, second %+v", first.Stats, second.Stats)
	}
}

// TestCounterResetPerSort charges each Sort only for its own I/O
func TestCounterResetPerSort(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeValues(t, fs, "/in.bin", shuffled(3000, 8))
	s := newSorter(t, &emsort.Config{Fs: fs, MemoryBudget: 100, Arity: 4})
	first, err := s.Sort(context.Background(), "/in.bin", "/out.bin", 0)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Sort(context.Background(), "/in.bin", "/out.bin", 0)
	if err != nil {
		t.Fatal(err)
	}
	if first.Stats != second.Stats {
		t.Fatalf("first %+v, second %+v", first.Stats, second.Stats)
	}
}

func TestEmptyInput(t *testing.T) {
	for _, mode := range []emsort.Mode{emsort.MergeMode, emsort.QuickMode} {
		got, res := sortValues(t, &emsort.Config{Mode: mode}, nil)
		if len(got) != 0 {
			t.Fatalf("%s: got %d elements", mode, len(got))
		}
		if res.TotalIO() != 0 {
			t.Fatalf("%s: empty input cost %d", mode, res.TotalIO())
		}
	}
}

func TestSingleElement(t *testing.T) {
	got, res := sortValues(t, &emsort.Config{MemoryBudget: 1}, []int64{-7})
	if !slices.Equal(got, []int64{-7}) {
		t.Fatalf("got %v", got)
	}
	if res.TotalIO() != 2 {
		t.Fatalf("got %d I/Os, want 2", res.TotalIO())
	}
}

// TestBudgetBoundary sorts inputs at and just past the memory budget
func TestBudgetBoundary(t *testing.T) {
	cases := []struct {
		n        int
		external bool
	}{
		{511, false},
		{512, false},
		{513, true},
	}
	for _, c := range cases {
		in := shuffled(c.n, uint64(c.n))
		got, res := sortValues(t, &emsort.Config{MemoryBudget: 512, Arity: 2}, in)
		assertSortedPermutation(t, in, got)
		// an in-memory sort is one run read and one run write
		inMemory := res.TotalIO() == 2
		if inMemory == c.external {
			t.Fatalf("n=%d: cost %d, external=%v", c.n, res.TotalIO(), c.external)
		}
	}
}

func TestTotalBytesPrefix(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeValues(t, fs, "/in.bin", []int64{5, 3, 1, 4, 2})
	res, err := newSorter(t, &emsort.Config{Fs: fs}).Sort(context.Background(), "/in.bin", "/out.bin", 24)
	if err != nil {
		t.Fatal(err)
	}
	if got := readValues(t, fs, "/out.bin"); !slices.Equal(got, []int64{1, 3, 5}) {
		t.Fatalf("got %v", got)
	}
	if res.Elements != 3 {
		t.Fatalf("got %d elements", res.Elements)
	}
}

func TestTrailingBytesIgnored(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeValues(t, fs, "/in.bin", []int64{2, 1})
	f, err := fs.OpenFile("/in.bin", os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := newSorter(t, &emsort.Config{Fs: fs}).Sort(context.Background(), "/in.bin", "/out.bin", 0); err != nil {
		t.Fatal(err)
	}
	if got := readValues(t, fs, "/out.bin"); !slices.Equal(got, []int64{1, 2}) {
		t.Fatalf("got %v", got)
	}
}

func TestOutputTruncated(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeValues(t, fs, "/in.bin", []int64{3, 2, 1})
	writeValues(t, fs, "/out.bin", shuffled(1000, 1))
	if _, err := newSorter(t, &emsort.Config{Fs: fs}).Sort(context.Background(), "/in.bin", "/out.bin", 0); err != nil {
		t.Fatal(err)
	}
	if got := readValues(t, fs, "/out.bin"); !slices.Equal(got, []int64{1, 2, 3}) {
		t.Fatalf("got %v", got)
	}
}

// TestArenaRemoved leaves no intermediate files behind on success or failure
func TestArenaRemoved(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeValues(t, fs, "/in.bin", shuffled(5000, 3))
	for _, mode := range []emsort.Mode{emsort.MergeMode, emsort.QuickMode} {
		s := newSorter(t, &emsort.Config{Fs: fs, MemoryBudget: 100, Arity: 3, Mode: mode, TempDir: "/work", Seed: 2})
		if _, err := s.Sort(context.Background(), "/in.bin", "/out.bin", 0); err != nil {
			t.Fatal(err)
		}
		entries, err := afero.ReadDir(fs, "/work")
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 0 {
			t.Fatalf("%s: %d entries left in temp dir", mode, len(entries))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newSorter(t, &emsort.Config{Fs: fs, MemoryBudget: 100, TempDir: "/work"})
	if _, err := s.Sort(ctx, "/in.bin", "/out.bin", 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	entries, err := afero.ReadDir(fs, "/work")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("%d entries left in temp dir after cancel", len(entries))
	}
}

func TestConfigErrors(t *testing.T) {
	cases := []struct {
		name   string
		config emsort.Config
		field  string
	}{
		{"arity", emsort.Config{Arity: 1}, "Arity"},
		{"block size", emsort.Config{BlockSize: 12}, "BlockSize"},
		{"memory", emsort.Config{MemoryBudget: -1}, "MemoryBudget"},
		{"mode", emsort.Config{Mode: emsort.Mode(9)}, "Mode"},
		{"resample", emsort.Config{MaxResample: -2}, "MaxResample"},
	}
	for _, c := range cases {
		_, err := emsort.New(&c.config)
		var usage *emsort.UsageError
		if !errors.As(err, &usage) {
			t.Fatalf("%s: expected UsageError, got %v", c.name, err)
		}
		if usage.Field != c.field {
			t.Fatalf("%s: got field %s", c.name, usage.Field)
		}
	}
}

func TestSortUsageErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeValues(t, fs, "/in.bin", []int64{1, 2, 3})
	s := newSorter(t, &emsort.Config{Fs: fs})
	ctx := context.Background()

	var usage *emsort.UsageError
	if _, err := s.Sort(ctx, "/in.bin", "/in.bin", 0); !errors.As(err, &usage) {
		t.Fatalf("same path: got %v", err)
	}
	if _, err := s.Sort(ctx, "/in.bin", "/out.bin", 32); !errors.As(err, &usage) {
		t.Fatalf("oversized totalBytes: got %v", err)
	}
	if _, err := s.Sort(ctx, "/in.bin", "/out.bin", -8); !errors.As(err, &usage) {
		t.Fatalf("negative totalBytes: got %v", err)
	}

	_, err := s.Sort(ctx, "/missing.bin", "/out.bin", 0)
	if !emsort.IsOpenError(err) {
		t.Fatalf("missing input: expected an open error, got %v", err)
	}
	var ioErr *emsort.IOError
	if !errors.As(err, &ioErr) || ioErr.Path != "/missing.bin" {
		t.Fatalf("missing input: got %v", err)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]emsort.Mode{
		"merge":      emsort.MergeMode,
		"MergeSort":  emsort.MergeMode,
		"quick":      emsort.QuickMode,
		" quicksort": emsort.QuickMode,
	} {
		got, err := emsort.ParseMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := emsort.ParseMode("heap"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestDefaults(t *testing.T) {
	c := newSorter(t, nil).Config()
	if c.BlockSize != 4096 || c.Arity != 2 || c.Mode != emsort.MergeMode || c.MaxResample != 3 {
		t.Fatalf("unexpected defaults %+v", c)
	}
	if c.Fs == nil || c.Logger == nil {
		t.Fatal("defaults must fill Fs and Logger")
	}
}
