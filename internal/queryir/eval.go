package queryir

// Record is a row that predicates can be evaluated against in memory.
type Record interface {
	// Scalar returns the value of a scalar field and whether it exists.
	Scalar(field string) (string, bool)
	// Set returns the elements of a set field and whether it exists.
	Set(field string) ([]string, bool)
}

// Eval evaluates a predicate against a record.
//
// A nil predicate is true. Unknown fields never match, mirroring a SQL
// comparison against a missing column value. Eval must agree with the SQL
// compiler for every predicate the compiler accepts.
func Eval(p Predicate, r Record) bool {
	if p == nil {
		return true
	}

	switch pred := p.(type) {
	case Equals:
		return evalEquals(pred, r)
	case *Equals:
		return evalEquals(*pred, r)
	case In:
		return evalIn(pred, r)
	case *In:
		return evalIn(*pred, r)
	case HasAll:
		return evalHasAll(pred, r)
	case *HasAll:
		return evalHasAll(*pred, r)
	case And:
		return evalAnd(pred, r)
	case *And:
		return evalAnd(*pred, r)
	default:
		return false
	}
}

func evalEquals(eq Equals, r Record) bool {
	v, ok := r.Scalar(eq.Field)
	return ok && v == eq.Value
}

func evalIn(in In, r Record) bool {
	v, ok := r.Scalar(in.Field)
	if !ok {
		return false
	}
	for _, candidate := range in.Values {
		if v == candidate {
			return true
		}
	}
	return false
}

func evalHasAll(h HasAll, r Record) bool {
	if len(h.Values) == 0 {
		return true
	}
	elems, ok := r.Set(h.Field)
	if !ok {
		return false
	}
	have := make(map[string]struct{}, len(elems))
	for _, e := range elems {
		have[e] = struct{}{}
	}
	for _, want := range h.Values {
		if _, ok := have[want]; !ok {
			return false
		}
	}
	return true
}

func evalAnd(and And, r Record) bool {
	for _, sub := range and.Predicates {
		if !Eval(sub, r) {
			return false
		}
	}
	return true
}

// Compare orders two records by the given keys using byte-wise string
// comparison, matching BINARY collation in SQL. It returns -1, 0 or +1.
func Compare(order []Order, a, b Record) int {
	for _, o := range order {
		av, _ := a.Scalar(o.Field)
		bv, _ := b.Scalar(o.Field)
		c := 0
		switch {
		case av < bv:
			c = -1
		case av > bv:
			c = 1
		}
		if o.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}
