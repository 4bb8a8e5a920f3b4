package ordering_test

import (
	"errors"
	"math/rand"
	"strconv"
	"testing"

	"opsmap/internal/domain"
	"opsmap/internal/ordering"
)

func steps(names ...string) []domain.Step {
	out := make([]domain.Step, len(names))
	for i, n := range names {
		out[i] = domain.Step{ID: n, PhaseID: "ph-1", Name: n, OrderIndex: i}
	}
	return out
}

func ids(items []domain.Step) []string {
	out := make([]string, len(items))
	for i, s := range ordering.Sorted(items) {
		out[i] = s.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRemoveAtRenumbersRemaining(t *testing.T) {
	in := steps("a", "b", "c")
	out, err := ordering.RemoveAt(in, 1)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := ids(out); !equal(got, []string{"a", "c"}) {
		t.Fatalf("unexpected order %v", got)
	}
	for _, s := range out {
		want := map[string]int{"a": 0, "c": 1}[s.ID]
		if s.OrderIndex != want {
			t.Fatalf("step %s index %d, want %d", s.ID, s.OrderIndex, want)
		}
	}
	if in[2].OrderIndex != 2 {
		t.Fatalf("input mutated")
	}
}

func TestRemoveAtOutOfRange(t *testing.T) {
	_, err := ordering.RemoveAt(steps("a"), 3)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestInsertAtOpensSlot(t *testing.T) {
	out := ordering.InsertAt(steps("a", "b"), domain.Step{ID: "x", PhaseID: "ph-1"}, 1)
	if got := ids(out); !equal(got, []string{"a", "x", "b"}) {
		t.Fatalf("unexpected order %v", got)
	}
	if !ordering.Dense(out) {
		t.Fatalf("expected dense indexes")
	}
	out = ordering.InsertAt(out, domain.Step{ID: "y"}, 99)
	if got := ids(out); got[len(got)-1] != "y" {
		t.Fatalf("expected clamp to end, got %v", got)
	}
}

func TestInsertRepairsSparseInput(t *testing.T) {
	in := []domain.Step{{ID: "a", OrderIndex: 7}, {ID: "b", OrderIndex: 3}, {ID: "c", OrderIndex: 3}}
	out := ordering.InsertAt(in, domain.Step{ID: "z"}, 0)
	if got := ids(out); !equal(got, []string{"z", "b", "c", "a"}) {
		t.Fatalf("unexpected order %v", got)
	}
	if !ordering.Dense(out) {
		t.Fatalf("expected dense indexes")
	}
}

func TestMoveTo(t *testing.T) {
	out, err := ordering.MoveTo(steps("a", "b", "c", "d"), "a", 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(out); !equal(got, []string{"b", "c", "a", "d"}) {
		t.Fatalf("unexpected order %v", got)
	}
	if _, err := ordering.MoveTo(out, "missing", 0); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMoveAcrossParents(t *testing.T) {
	src := steps("a", "b", "c")
	dst := []domain.Step{{ID: "x", PhaseID: "ph-2", OrderIndex: 0}}
	src, dst, err := ordering.MoveAcross(src, dst, "b", "ph-2", 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(src); !equal(got, []string{"a", "c"}) || !ordering.Dense(src) {
		t.Fatalf("source not closed: %v", src)
	}
	if got := ids(dst); !equal(got, []string{"b", "x"}) || !ordering.Dense(dst) {
		t.Fatalf("destination not opened: %v", dst)
	}
	if dst[0].PhaseID != "ph-2" {
		t.Fatalf("moved step not re-parented: %+v", dst[0])
	}
}

func TestReindexGroupsReportsChanges(t *testing.T) {
	all := []domain.Step{
		{ID: "a", PhaseID: "p1", OrderIndex: 0},
		{ID: "b", PhaseID: "p1", OrderIndex: 5},
		{ID: "c", PhaseID: "p2", OrderIndex: 1},
	}
	out, changed := ordering.ReindexGroups(all)
	if len(out) != 3 {
		t.Fatalf("lost items: %v", out)
	}
	if !changed["b"] || !changed["c"] || changed["a"] {
		t.Fatalf("unexpected change set %v", changed)
	}
	_, again := ordering.ReindexGroups(out)
	if len(again) != 0 {
		t.Fatalf("second pass should be a no-op, got %v", again)
	}
}

func TestRandomOperationsStayDense(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var set []domain.Step
	next := 0
	for i := 0; i < 500; i++ {
		switch op := rng.Intn(3); {
		case op == 0 || len(set) == 0:
			set = ordering.InsertAt(set, domain.Step{ID: "s" + strconv.Itoa(next)}, rng.Intn(len(set)+2)-1)
			next++
		case op == 1:
			var err error
			set, err = ordering.RemoveAt(set, rng.Intn(len(set)))
			if err != nil {
				t.Fatal(err)
			}
		default:
			target := set[rng.Intn(len(set))].ID
			var err error
			set, err = ordering.MoveTo(set, target, rng.Intn(len(set)))
			if err != nil {
				t.Fatal(err)
			}
		}
		if !ordering.Dense(set) {
			t.Fatalf("iteration %d: not dense: %v", i, set)
		}
	}
}
