package onnx

// Attrs provides name-keyed access to a node's attributes.
type Attrs map[string]*AttributeProto

// NodeAttrs builds the attribute map for a node.
func NodeAttrs(node *NodeProto) Attrs {
	attrs := make(Attrs, len(node.Attributes))
	for i := range node.Attributes {
		attrs[node.Attributes[i].Name] = &node.Attributes[i]
	}
	return attrs
}

// Has reports whether the attribute is present.
func (a Attrs) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// Int returns an integer attribute or the default.
func (a Attrs) Int(name string, def int64) int64 {
	if attr, ok := a[name]; ok {
		return attr.I
	}
	return def
}

// Float returns a float attribute or the default.
func (a Attrs) Float(name string, def float32) float32 {
	if attr, ok := a[name]; ok {
		return attr.F
	}
	return def
}

// String returns a string attribute or the default.
func (a Attrs) String(name, def string) string {
	if attr, ok := a[name]; ok {
		return string(attr.S)
	}
	return def
}

// Ints returns an integer-array attribute, or nil if absent.
func (a Attrs) Ints(name string) []int64 {
	if attr, ok := a[name]; ok {
		return attr.Ints
	}
	return nil
}

// Floats returns a float-array attribute, or nil if absent.
func (a Attrs) Floats(name string) []float32 {
	if attr, ok := a[name]; ok {
		return attr.Floats
	}
	return nil
}

// Strings returns a string-array attribute, or nil if absent.
func (a Attrs) Strings(name string) []string {
	attr, ok := a[name]
	if !ok {
		return nil
	}
	out := make([]string, len(attr.Strings))
	for i, s := range attr.Strings {
		out[i] = string(s)
	}
	return out
}

// Tensor returns a tensor-valued attribute, or nil if absent.
func (a Attrs) Tensor(name string) *TensorProto {
	if attr, ok := a[name]; ok {
		return attr.T
	}
	return nil
}
