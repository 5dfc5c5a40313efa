package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func sum(_ context.Context, group []int) (int, error) {
	total := 0
	for _, n := range group {
		total += n
	}
	return total, nil
}

func TestFilter(t *testing.T) {
	got := run(t, Filter("even", func(n int) bool { return n%2 == 0 }), []int{1, 2, 3, 4, 5, 6})
	want := []int{2, 4, 6}
	if !intSliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFilter_None(t *testing.T) {
	got := run(t, Filter("none", func(int) bool { return false }), []int{1, 2, 3})
	if len(got) != 0 {
		t.Errorf("expected empty, got %v", got)
	}
}

func TestMap(t *testing.T) {
	double := Map("double", func(_ context.Context, n int) (int, error) {
		return n * 2, nil
	})
	got := run(t, double, []int{1, 2, 3})
	want := []int{2, 4, 6}
	if !intSliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMap_Error(t *testing.T) {
	bad := errors.New("bad value")
	fail := Map("fail", func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, bad
		}
		return n, nil
	})
	got, err := Collect(context.Background(), fail.Apply(FromSlice([]int{1, 2, 3})))
	if !errors.Is(err, bad) {
		t.Fatalf("expected user error to propagate unchanged, got %v", err)
	}
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("expected [1] before error, got %v", got)
	}
}

func TestMap_TypeConversion(t *testing.T) {
	label := Map("label", func(_ context.Context, n int) (string, error) {
		return fmt.Sprintf("#%d", n), nil
	})
	got := run(t, label, []int{1, 2, 3})
	want := []string{"#1", "#2", "#3"}
	if !strSliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFlatMap(t *testing.T) {
	expand := FlatMap("expand", func(_ context.Context, n int) (Iterator[int], error) {
		return FromSlice([]int{n, n * 10}), nil
	})
	got := run(t, expand, []int{1, 2, 3})
	want := []int{1, 10, 2, 20, 3, 30}
	if !intSliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFlatMap_EmptyInner(t *testing.T) {
	expand := FlatMap("expand", func(_ context.Context, n int) (Iterator[int], error) {
		if n == 2 {
			return Empty[int](), nil
		}
		return FromSlice([]int{n}), nil
	})
	got := run(t, expand, []int{1, 2, 3})
	want := []int{1, 3}
	if !intSliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFlatten(t *testing.T) {
	first := &closeRecorder[int]{Iterator: FromSlice([]int{1, 2})}
	second := &closeRecorder[int]{Iterator: FromSlice([]int{0})}
	third := &closeRecorder[int]{Iterator: FromSlice([]int{3})}

	got := run(t, Flatten[int]("flatten"), []Iterator[int]{first, Empty[int](), second, third})
	want := []int{1, 2, 0, 3}
	if !intSliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	for i, inner := range []*closeRecorder[int]{first, second, third} {
		if inner.closed != 1 {
			t.Errorf("inner %d closed %d times, want 1", i, inner.closed)
		}
	}
}

func TestFlatten_DrainsInnerBeforeNext(t *testing.T) {
	pulledOuter := 0
	outer := FromFunc(func(_ context.Context) (Iterator[int], bool, error) {
		pulledOuter++
		if pulledOuter > 2 {
			return nil, false, nil
		}
		return FromSlice([]int{pulledOuter, pulledOuter}), true, nil
	})
	it := Flatten[int]("flatten").Apply(outer)
	ctx := context.Background()

	it.Next(ctx)
	it.Next(ctx)
	if pulledOuter != 1 {
		t.Errorf("expected one outer pull while the first inner has values, got %d", pulledOuter)
	}
}

func TestFlattenSlices(t *testing.T) {
	got := run(t, FlattenSlices[int]("ungroup"), [][]int{{1, 2}, {}, {3}})
	want := []int{1, 2, 3}
	if !intSliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTap(t *testing.T) {
	var seen []int
	tap := Tap("record", func(_ context.Context, n int) error {
		seen = append(seen, n)
		return nil
	})
	got := run(t, tap, []int{1, 2, 3})
	if !intSliceEqual(got, []int{1, 2, 3}) {
		t.Errorf("values should pass through unchanged, got %v", got)
	}
	if !intSliceEqual(seen, []int{1, 2, 3}) {
		t.Errorf("side effect got %v", seen)
	}
}

func TestTap_Error(t *testing.T) {
	tap := Tap("fail", func(_ context.Context, n int) error {
		if n == 2 {
			return errors.New("tap failed")
		}
		return nil
	})
	got, err := Collect(context.Background(), tap.Apply(FromSlice([]int{1, 2, 3})))
	if err == nil {
		t.Fatal("expected error")
	}
	if len(got) != 1 {
		t.Errorf("expected 1 value before error, got %v", got)
	}
}

func TestBatchedMap_Sum(t *testing.T) {
	step := BatchedMap("sum", sum, 2)
	got := run(t, step, []int{0, 1, 2, 3, 4})
	want := []int{1, 5, 4}
	if !intSliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	inputs, outputs := step.Counts()
	if inputs != 5 || outputs != 3 {
		t.Errorf("got counts %d/%d, want 5/3", inputs, outputs)
	}
}

func TestBatchedMap_OutputLength(t *testing.T) {
	tests := []struct {
		length, n, want int
	}{
		{0, 3, 0},
		{1, 3, 1},
		{6, 3, 2},
		{7, 3, 3},
		{7, 1, 7},
		{7, 0, 1},
		{7, -1, 1},
		{0, 0, 0},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("L=%d,n=%d", tc.length, tc.n), func(t *testing.T) {
			items := make([]int, tc.length)
			got := run(t, BatchedMap("sum", sum, tc.n), items)
			if len(got) != tc.want {
				t.Errorf("got %d outputs, want %d", len(got), tc.want)
			}
		})
	}
}

func TestBatchedMap_UnboundedDrainsInput(t *testing.T) {
	got := run(t, BatchedMap("sum", sum, 0), []int{1, 2, 3, 4})
	if !intSliceEqual(got, []int{10}) {
		t.Errorf("got %v, want [10]", got)
	}
}

func TestBatchedMap_Error(t *testing.T) {
	boom := errors.New("boom")
	step := BatchedMap("fail", func(_ context.Context, group []int) (int, error) {
		return 0, boom
	}, 2)
	if _, err := Collect(context.Background(), step.Apply(FromSlice([]int{1, 2}))); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestBatch(t *testing.T) {
	got := run(t, Batch[int]("pairs", 2), []int{1, 2, 3})
	if !groupsEqual(got, [][]int{{1, 2}, {3}}) {
		t.Errorf("got %v", got)
	}
}

func TestGrouper(t *testing.T) {
	input := []int{1, 2, 3, 4, 1, 2, 3, 4}
	is := func(v int) func(int) bool { return func(n int) bool { return n == v } }

	tests := []struct {
		name string
		opts []GroupOption[int]
		in   []int
		want [][]int
	}{
		{
			name: "starter and ender",
			opts: []GroupOption[int]{WithStarter(is(1)), WithEnder(is(3))},
			in:   input,
			want: [][]int{{1, 2, 3}, {4}, {1, 2, 3}, {4}},
		},
		{
			name: "ender only",
			opts: []GroupOption[int]{WithEnder(is(4))},
			in:   input,
			want: [][]int{{1, 2, 3, 4}, {1, 2, 3, 4}},
		},
		{
			name: "starter only",
			opts: []GroupOption[int]{WithStarter(is(1))},
			in:   input,
			want: [][]int{{1, 2, 3, 4}, {1, 2, 3, 4}},
		},
		{
			name: "starter on first element does not emit empty group",
			opts: []GroupOption[int]{WithStarter(is(1))},
			in:   []int{1, 1, 2},
			want: [][]int{{1}, {1, 2}},
		},
		{
			name: "starter checked before ender",
			opts: []GroupOption[int]{WithStarter(is(2)), WithEnder(is(2))},
			in:   []int{1, 2, 3},
			want: [][]int{{1}, {2, 3}},
		},
		{
			name: "ender on last element leaves nothing behind",
			opts: []GroupOption[int]{WithEnder(is(4))},
			in:   []int{3, 4},
			want: [][]int{{3, 4}},
		},
		{
			name: "no predicates collapse input",
			in:   input,
			want: [][]int{input},
		},
		{
			name: "empty input",
			opts: []GroupOption[int]{WithEnder(is(4))},
			in:   []int{},
			want: [][]int{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := run(t, Grouper("group", tc.opts...), tc.in)
			if !groupsEqual(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestGrouper_ZeroValues(t *testing.T) {
	got := run(t, Grouper("group", WithEnder(func(n int) bool { return n == 0 })), []int{0, 0, 1})
	if !groupsEqual(got, [][]int{{0}, {0}, {1}}) {
		t.Errorf("got %v", got)
	}
}
