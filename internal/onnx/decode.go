package onnx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// decoder is a minimal protobuf wire-format reader. It decodes only the
// ONNX messages declared in proto.go and skips unknown fields, which keeps
// the loader independent of generated protobuf code.
type decoder struct {
	data []byte
	pos  int
}

// Protobuf wire types.
const (
	wireVarint = 0
	wire64Bit  = 1
	wireBytes  = 2
	wire32Bit  = 5
)

// fields iterates the message's fields, invoking fn for each tag. fn must
// consume the field's payload; unhandled fields are skipped by returning
// errSkip.
var errSkip = errors.New("skip field")

func (d *decoder) fields(fn func(num, wire int) error) error {
	for d.pos < len(d.data) {
		tag, err := d.readVarint()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		num := int(tag >> 3)
		wire := int(tag & 0x7)
		if err := fn(num, wire); err != nil {
			if errors.Is(err, errSkip) {
				if err := d.skipField(wire); err != nil {
					return err
				}
				continue
			}
			return err
		}
	}
	return nil
}

// sub decodes an embedded message from a length-delimited payload.
func (d *decoder) sub(fn func(*decoder) error) error {
	data, err := d.readBytes()
	if err != nil {
		return err
	}
	return fn(&decoder{data: data})
}

func (d *decoder) model(m *ModelProto) error {
	return d.fields(func(num, _ int) error {
		var err error
		switch num {
		case 1:
			m.IRVersion, err = d.readVarint()
		case 2:
			m.ProducerName, err = d.readString()
		case 3:
			m.ProducerVersion, err = d.readString()
		case 4:
			m.Domain, err = d.readString()
		case 5:
			m.ModelVersion, err = d.readVarint()
		case 6:
			m.DocString, err = d.readString()
		case 7:
			m.Graph = &GraphProto{}
			err = d.sub(func(s *decoder) error { return s.graph(m.Graph) })
		case 8:
			var opset OperatorSetID
			err = d.sub(func(s *decoder) error { return s.opset(&opset) })
			m.OpsetImport = append(m.OpsetImport, opset)
		case 14:
			var entry StringStringEntry
			err = d.sub(func(s *decoder) error { return s.metadata(&entry) })
			m.MetadataProps = append(m.MetadataProps, entry)
		default:
			return errSkip
		}
		return err
	})
}

func (d *decoder) graph(g *GraphProto) error {
	return d.fields(func(num, _ int) error {
		var err error
		switch num {
		case 1:
			var node NodeProto
			err = d.sub(func(s *decoder) error { return s.node(&node) })
			g.Nodes = append(g.Nodes, node)
		case 2:
			g.Name, err = d.readString()
		case 5:
			var init TensorProto
			err = d.sub(func(s *decoder) error { return s.tensor(&init) })
			g.Initializers = append(g.Initializers, init)
		case 10:
			g.DocString, err = d.readString()
		case 11:
			var vi ValueInfoProto
			err = d.sub(func(s *decoder) error { return s.valueInfo(&vi) })
			g.Inputs = append(g.Inputs, vi)
		case 12:
			var vi ValueInfoProto
			err = d.sub(func(s *decoder) error { return s.valueInfo(&vi) })
			g.Outputs = append(g.Outputs, vi)
		case 13:
			var vi ValueInfoProto
			err = d.sub(func(s *decoder) error { return s.valueInfo(&vi) })
			g.ValueInfo = append(g.ValueInfo, vi)
		default:
			return errSkip
		}
		return err
	})
}

func (d *decoder) node(n *NodeProto) error {
	return d.fields(func(num, _ int) error {
		var err error
		switch num {
		case 1:
			var name string
			name, err = d.readString()
			n.Inputs = append(n.Inputs, name)
		case 2:
			var name string
			name, err = d.readString()
			n.Outputs = append(n.Outputs, name)
		case 3:
			n.Name, err = d.readString()
		case 4:
			n.OpType, err = d.readString()
		case 5:
			var attr AttributeProto
			err = d.sub(func(s *decoder) error { return s.attribute(&attr) })
			n.Attributes = append(n.Attributes, attr)
		case 7:
			n.Domain, err = d.readString()
		default:
			return errSkip
		}
		return err
	})
}

func (d *decoder) tensor(t *TensorProto) error {
	return d.fields(func(num, wire int) error {
		var err error
		switch num {
		case 1:
			if wire == wireBytes {
				err = d.packedVarints(func(v int64) { t.Dims = append(t.Dims, v) })
				break
			}
			var v int64
			v, err = d.readVarint()
			t.Dims = append(t.Dims, v)
		case 2:
			t.DataType, err = d.readInt32()
		case 4:
			err = d.packedFloats(func(v float32) { t.FloatData = append(t.FloatData, v) })
		case 5:
			err = d.packedVarints(func(v int64) {
				t.Int32Data = append(t.Int32Data, int32(v)) //nolint:gosec // G115: ONNX int32_data fits in int32.
			})
		case 7:
			err = d.packedVarints(func(v int64) { t.Int64Data = append(t.Int64Data, v) })
		case 8:
			t.Name, err = d.readString()
		case 9:
			t.RawData, err = d.readBytes()
		default:
			return errSkip
		}
		return err
	})
}

func (d *decoder) valueInfo(v *ValueInfoProto) error {
	return d.fields(func(num, _ int) error {
		var err error
		switch num {
		case 1:
			v.Name, err = d.readString()
		case 2:
			v.Type = &TypeProto{}
			err = d.sub(func(s *decoder) error { return s.typeProto(v.Type) })
		default:
			return errSkip
		}
		return err
	})
}

func (d *decoder) typeProto(t *TypeProto) error {
	return d.fields(func(num, _ int) error {
		switch num {
		case 1:
			t.TensorType = &TensorTypeProto{}
			return d.sub(func(s *decoder) error { return s.tensorType(t.TensorType) })
		default:
			return errSkip
		}
	})
}

func (d *decoder) tensorType(t *TensorTypeProto) error {
	return d.fields(func(num, _ int) error {
		var err error
		switch num {
		case 1:
			t.ElemType, err = d.readInt32()
		case 2:
			t.Shape = &TensorShapeProto{}
			err = d.sub(func(s *decoder) error { return s.shape(t.Shape) })
		default:
			return errSkip
		}
		return err
	})
}

func (d *decoder) shape(t *TensorShapeProto) error {
	return d.fields(func(num, _ int) error {
		switch num {
		case 1:
			var dim DimensionProto
			if err := d.sub(func(s *decoder) error { return s.dimension(&dim) }); err != nil {
				return err
			}
			t.Dims = append(t.Dims, dim)
			return nil
		default:
			return errSkip
		}
	})
}

func (d *decoder) dimension(m *DimensionProto) error {
	return d.fields(func(num, _ int) error {
		var err error
		switch num {
		case 1:
			m.DimValue, err = d.readVarint()
		case 2:
			m.DimParam, err = d.readString()
		default:
			return errSkip
		}
		return err
	})
}

func (d *decoder) attribute(a *AttributeProto) error {
	return d.fields(func(num, _ int) error {
		var err error
		switch num {
		case 1:
			a.Name, err = d.readString()
		case 2:
			a.F, err = d.readFloat32()
		case 3:
			a.I, err = d.readVarint()
		case 4:
			a.S, err = d.readBytes()
		case 5:
			a.T = &TensorProto{}
			err = d.sub(func(s *decoder) error { return s.tensor(a.T) })
		case 6:
			err = d.packedFloats(func(v float32) { a.Floats = append(a.Floats, v) })
		case 7:
			err = d.packedVarints(func(v int64) { a.Ints = append(a.Ints, v) })
		case 8:
			var s []byte
			s, err = d.readBytes()
			a.Strings = append(a.Strings, s)
		case 20:
			a.Type, err = d.readInt32()
		default:
			return errSkip
		}
		return err
	})
}

func (d *decoder) opset(m *OperatorSetID) error {
	return d.fields(func(num, _ int) error {
		var err error
		switch num {
		case 1:
			m.Domain, err = d.readString()
		case 2:
			m.Version, err = d.readVarint()
		default:
			return errSkip
		}
		return err
	})
}

func (d *decoder) metadata(m *StringStringEntry) error {
	return d.fields(func(num, _ int) error {
		var err error
		switch num {
		case 1:
			m.Key, err = d.readString()
		case 2:
			m.Value, err = d.readString()
		default:
			return errSkip
		}
		return err
	})
}

// packedVarints decodes a packed repeated varint payload.
func (d *decoder) packedVarints(emit func(int64)) error {
	data, err := d.readBytes()
	if err != nil {
		return err
	}
	sub := &decoder{data: data}
	for sub.pos < len(sub.data) {
		v, err := sub.readVarint()
		if err != nil {
			return err
		}
		emit(v)
	}
	return nil
}

// packedFloats decodes a packed repeated float payload.
func (d *decoder) packedFloats(emit func(float32)) error {
	data, err := d.readBytes()
	if err != nil {
		return err
	}
	for i := 0; i+4 <= len(data); i += 4 {
		emit(math.Float32frombits(binary.LittleEndian.Uint32(data[i:])))
	}
	return nil
}

func (d *decoder) readVarint() (int64, error) {
	var result uint64
	var shift uint
	for {
		if d.pos >= len(d.data) {
			return 0, io.EOF
		}
		b := d.data[d.pos]
		d.pos++
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift >= 64 {
			return 0, errors.New("varint overflow")
		}
	}
	return int64(result), nil //nolint:gosec // G115: protobuf varint fits in int64.
}

func (d *decoder) readInt32() (int32, error) {
	v, err := d.readVarint()
	if err != nil {
		return 0, err
	}
	return int32(v), nil //nolint:gosec // G115: protobuf varint fits in int32.
}

func (d *decoder) readBytes() ([]byte, error) {
	length, err := d.readVarint()
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, errors.New("negative length")
	}
	end := d.pos + int(length)
	if end > len(d.data) || end < d.pos {
		return nil, io.ErrUnexpectedEOF
	}
	result := d.data[d.pos:end]
	d.pos = end
	return result, nil
}

func (d *decoder) readString() (string, error) {
	data, err := d.readBytes()
	return string(data), err
}

func (d *decoder) readFloat32() (float32, error) {
	if d.pos+4 > len(d.data) {
		return 0, io.ErrUnexpectedEOF
	}
	bits := binary.LittleEndian.Uint32(d.data[d.pos:])
	d.pos += 4
	return math.Float32frombits(bits), nil
}

func (d *decoder) skipField(wire int) error {
	switch wire {
	case wireVarint:
		_, err := d.readVarint()
		return err
	case wire64Bit:
		if d.pos+8 > len(d.data) {
			return io.ErrUnexpectedEOF
		}
		d.pos += 8
		return nil
	case wireBytes:
		_, err := d.readBytes()
		return err
	case wire32Bit:
		if d.pos+4 > len(d.data) {
			return io.ErrUnexpectedEOF
		}
		d.pos += 4
		return nil
	default:
		return fmt.Errorf("unknown wire type: %d", wire)
	}
}
