package algebra

// Weight is the signed multiplicity attached to every Z-set element. 64
// bits everywhere keeps in-memory and persisted traces bit-compatible;
// spec.md only requires 32 bits for in-memory sets, but using one width
// throughout avoids a conversion at the storage boundary.
type Weight = int64

// Ordered is the minimal constraint on an element type K: total order via
// operator comparisons, so batches can be sorted and merged without a
// caller-supplied comparator. Index keys and storage keys are expected to
// satisfy this directly (ints, strings); composite keys (kv.Key,
// temporal.TKV) do not, and are ordered by dedicated comparator functions
// in their own packages (kv.Less and temporal's less).
type Ordered interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64 | ~string
}
