package importer

// TensorRegistry is the per-import symbol table: tensor name to bound
// value. Names are case-sensitive and unique within one import.
type TensorRegistry struct {
	values   map[string]Value
	reserved map[string]bool
}

// newTensorRegistry creates an empty registry. One registry lives for the
// duration of a single import and is discarded afterwards.
func newTensorRegistry() *TensorRegistry {
	return &TensorRegistry{
		values:   make(map[string]Value),
		reserved: make(map[string]bool),
	}
}

// Reserve binds name to a null placeholder. Declared graph outputs are
// reserved before node processing so that producers registering the same
// name are recognized as the natural producer rather than a conflict.
func (r *TensorRegistry) Reserve(name string) {
	if _, ok := r.values[name]; ok {
		return
	}
	r.values[name] = Value{}
	r.reserved[name] = true
}

// Register binds name to value. Filling a reserved placeholder succeeds
// and clears the reservation. Rebinding to an identical value is a no-op;
// rebinding to a different value fails. Tensor handles are renamed to the
// registry name so the built graph is addressable by source-graph names.
func (r *TensorRegistry) Register(name string, value Value) *Error {
	if value.IsTensor() && value.Tensor().Name() != name {
		value.Tensor().SetName(name)
	}
	existing, ok := r.values[name]
	if ok && !r.reserved[name] {
		if existing.equal(value) {
			return nil
		}
		return errf(KindConflictingBinding, "tensor %q is already bound to a different value", name)
	}
	delete(r.reserved, name)
	r.values[name] = value
	return nil
}

// Lookup resolves name to its bound value. Reserved-but-unfilled names are
// not resolvable.
func (r *TensorRegistry) Lookup(name string) (Value, *Error) {
	value, ok := r.values[name]
	if !ok || r.reserved[name] {
		return Value{}, errf(KindUnresolvedReference, "tensor %q was never produced", name)
	}
	return value, nil
}

// Bound reports whether name resolves to an actual value.
func (r *TensorRegistry) Bound(name string) bool {
	_, ok := r.values[name]
	return ok && !r.reserved[name]
}
