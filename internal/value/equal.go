package value

// Eqv reports identity-level equality: atoms by value, numbers by value
// and exactness, everything else by reference.
func Eqv(a, b Value) bool {
	switch x := a.(type) {
	case Bool, Symbol, Bytes, Char, Null, Void:
		return a == b
	case *Number:
		y, ok := b.(*Number)
		return ok && x.Identical(y)
	case *Pair:
		y, ok := b.(*Pair)
		return ok && x == y
	case *Vector:
		y, ok := b.(*Vector)
		return ok && x == y
	case *Cell:
		y, ok := b.(*Cell)
		return ok && x.table == y.table && x.index == y.index
	case *Closure:
		y, ok := b.(*Closure)
		return ok && x == y
	case *Primitive:
		y, ok := b.(*Primitive)
		return ok && x == y
	case *Sealer:
		y, ok := b.(*Sealer)
		return ok && x == y
	case *Unsealer:
		y, ok := b.(*Unsealer)
		return ok && x == y
	case *Sealed:
		y, ok := b.(*Sealed)
		return ok && x == y
	default:
		return false
	}
}

// Equal reports structural equality: pairs and vectors compare
// element-wise, everything else as Eqv. a and b must be acyclic; use
// EqualMetered on values a program may have made cyclic.
func Equal(a, b Value) bool {
	eq, _ := EqualMetered(a, b, nil)
	return eq
}

// EqualMetered is Equal with visit called once per compared node. An error
// from visit aborts the comparison and is returned.
func EqualMetered(a, b Value, visit func() error) (bool, error) {
	type job struct{ a, b Value }
	work := []job{{a, b}}
	for len(work) > 0 {
		j := work[len(work)-1]
		work = work[:len(work)-1]
		if visit != nil {
			if err := visit(); err != nil {
				return false, err
			}
		}
		switch x := j.a.(type) {
		case *Pair:
			y, ok := j.b.(*Pair)
			if !ok {
				return false, nil
			}
			if x == y {
				continue
			}
			work = append(work, job{x.cdr, y.cdr}, job{x.car, y.car})
		case *Vector:
			y, ok := j.b.(*Vector)
			if !ok || len(x.items) != len(y.items) {
				return false, nil
			}
			if x == y {
				continue
			}
			for i := len(x.items) - 1; i >= 0; i-- {
				work = append(work, job{x.items[i], y.items[i]})
			}
		default:
			if !Eqv(j.a, j.b) {
				return false, nil
			}
		}
	}
	return true, nil
}
