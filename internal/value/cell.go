package value

import (
	"sort"

	"github.com/roach88/smarm/internal/halt"
)

// Cell is a mutable box. Cells are identified by their index in the
// CellTable of the evaluation that created them.
type Cell struct {
	table *CellTable
	index int
}

func (*Cell) value() {}

// Index returns the cell's position in its table.
func (c *Cell) Index() int { return c.index }

// CellTable holds the contents of every cell created by one evaluation.
// Indices are assigned in creation order, so they are deterministic.
type CellTable struct {
	slots []Value
}

// NewCellTable creates an empty table.
func NewCellTable() *CellTable {
	return &CellTable{}
}

// New creates a cell holding v.
func (t *CellTable) New(v Value) *Cell {
	t.slots = append(t.slots, v)
	return &Cell{table: t, index: len(t.slots) - 1}
}

// Ref returns the contents of c.
func (t *CellTable) Ref(c *Cell) (Value, error) {
	if c.table != t {
		return nil, halt.Type("cell belongs to another evaluation")
	}
	return t.slots[c.index], nil
}

// Set replaces the contents of c.
func (t *CellTable) Set(c *Cell, v Value) error {
	if c.table != t {
		return halt.Type("cell belongs to another evaluation")
	}
	t.slots[c.index] = v
	return nil
}

// Len returns the number of cells created so far.
func (t *CellTable) Len() int { return len(t.slots) }

// Reachable returns, in ascending order, the indices of cells reachable
// from roots. Traversal uses an explicit worklist and visited sets, so
// cycles through cells or mutated vectors terminate.
func (t *CellTable) Reachable(roots ...Value) []int {
	seenCells := make(map[int]bool)
	seenVectors := make(map[*Vector]bool)
	seenEnvs := make(map[*Env]bool)
	work := append([]Value(nil), roots...)

	var visitEnv func(e *Env)
	visitEnv = func(e *Env) {
		for ; e != nil && !seenEnvs[e]; e = e.parent {
			seenEnvs[e] = true
			if e.slots == nil {
				work = append(work, e.vals...)
				continue
			}
			for _, s := range e.slots {
				if s.ready {
					work = append(work, s.val)
				}
			}
		}
	}

	for len(work) > 0 {
		v := work[len(work)-1]
		work = work[:len(work)-1]
		switch x := v.(type) {
		case *Pair:
			work = append(work, x.car, x.cdr)
		case *Vector:
			if !seenVectors[x] {
				seenVectors[x] = true
				work = append(work, x.items...)
			}
		case *Cell:
			if x.table == t && !seenCells[x.index] {
				seenCells[x.index] = true
				work = append(work, t.slots[x.index])
			}
		case *Sealed:
			work = append(work, x.val)
		case *Closure:
			visitEnv(x.env)
		}
	}

	out := make([]int, 0, len(seenCells))
	for i := range seenCells {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
