package batch

import "github.com/dbspgo/dbsp/algebra"

// Union performs a linear merge of two sorted, consolidated batches,
// summing weights on matching keys and dropping the result whenever the
// sum is zero. Cost is O(len(a)+len(b)).
func Union[K algebra.Ordered](a, b *Batch[K]) *Batch[K] {
	ap, bp := a.Pairs(), b.Pairs()
	out := make([]Pair[K], 0, len(ap)+len(bp))
	i, j := 0, 0
	for i < len(ap) && j < len(bp) {
		switch {
		case ap[i].Key < bp[j].Key:
			out = append(out, ap[i])
			i++
		case bp[j].Key < ap[i].Key:
			out = append(out, bp[j])
			j++
		default:
			if sum := ap[i].Weight + bp[j].Weight; sum != 0 {
				out = append(out, Pair[K]{Key: ap[i].Key, Weight: sum})
			}
			i++
			j++
		}
	}
	out = append(out, ap[i:]...)
	out = append(out, bp[j:]...)
	return &Batch[K]{pairs: out}
}

// Negate maps weight -> -weight over every entry. Never produces a zero
// entry since the source batch never contained one.
func Negate[K algebra.Ordered](a *Batch[K]) *Batch[K] {
	ap := a.Pairs()
	out := make([]Pair[K], len(ap))
	for i, p := range ap {
		out[i] = Pair[K]{Key: p.Key, Weight: -p.Weight}
	}
	return &Batch[K]{pairs: out}
}

// ScalarMul maps weight -> s*weight, dropping entries when s is zero.
func ScalarMul[K algebra.Ordered](a *Batch[K], s algebra.Weight) *Batch[K] {
	if s == 0 {
		return &Batch[K]{}
	}
	ap := a.Pairs()
	out := make([]Pair[K], len(ap))
	for i, p := range ap {
		out[i] = Pair[K]{Key: p.Key, Weight: s * p.Weight}
	}
	return &Batch[K]{pairs: out}
}

// Get performs a binary-search point lookup, returning the weight and
// whether the key is present (always with a non-zero weight when true).
func Get[K algebra.Ordered](a *Batch[K], key K) (algebra.Weight, bool) {
	ap := a.Pairs()
	lo, hi := 0, len(ap)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case ap[mid].Key < key:
			lo = mid + 1
		case ap[mid].Key > key:
			hi = mid
		default:
			return ap[mid].Weight, true
		}
	}
	return 0, false
}

// Filter returns a new batch containing only entries whose key satisfies
// pred. Order and consolidation are preserved since filtering cannot
// introduce duplicate keys.
func Filter[K algebra.Ordered](a *Batch[K], pred func(K) bool) *Batch[K] {
	ap := a.Pairs()
	out := make([]Pair[K], 0, len(ap))
	for _, p := range ap {
		if pred(p.Key) {
			out = append(out, p)
		}
	}
	return &Batch[K]{pairs: out}
}

// Map transforms every key with f and re-consolidates, since distinct
// keys may map onto the same image.
func Map[K, K2 algebra.Ordered](a *Batch[K], f func(K) K2) *Batch[K2] {
	ap := a.Pairs()
	pairs := make([]Pair[K2], len(ap))
	for i, p := range ap {
		pairs[i] = Pair[K2]{Key: f(p.Key), Weight: p.Weight}
	}
	return Build(pairs)
}

// Fold reduces the batch in key order.
func Fold[K algebra.Ordered, Acc any](a *Batch[K], init Acc, f func(Acc, K, algebra.Weight) Acc) Acc {
	acc := init
	for _, p := range a.Pairs() {
		acc = f(acc, p.Key, p.Weight)
	}
	return acc
}

// Equal reports multiset equality of two batches' canonical forms: same
// length and identical (key, weight) pairs in order, since both sides are
// already strictly sorted and consolidated.
func Equal[K algebra.Ordered](a, b *Batch[K]) bool {
	ap, bp := a.Pairs(), b.Pairs()
	if len(ap) != len(bp) {
		return false
	}
	for i := range ap {
		if ap[i] != bp[i] {
			return false
		}
	}
	return true
}
