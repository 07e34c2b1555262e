package formats

import (
	"errors"
	"fmt"
	"os"

	"github.com/Faultbox/erinn/pkg/codec"
)

// DataDog format errors.
var (
	ErrInvalidDataDogMagic = errors.New("invalid DataDog magic: expected 'DDOG'")
	ErrMissingTable        = errors.New("missing table")
)

const dataDogMagic = "DDOG"

// MissingTableError reports a required object list absent from a DataDog file.
type MissingTableError struct {
	List string
}

func (e *MissingTableError) Error() string {
	return fmt.Sprintf("%v: object list %q not found", ErrMissingTable, e.List)
}

// Is reports whether target is ErrMissingTable.
func (e *MissingTableError) Is(target error) bool {
	return target == ErrMissingTable
}

// FieldType is the stored type of a DataDog field.
type FieldType uint8

const (
	FieldBool   FieldType = 1
	FieldInt    FieldType = 2
	FieldString FieldType = 3
	FieldFloat  FieldType = 4
	FieldByte   FieldType = 5
)

// String returns a human-readable type name.
func (t FieldType) String() string {
	switch t {
	case FieldBool:
		return "bool"
	case FieldInt:
		return "int"
	case FieldString:
		return "string"
	case FieldFloat:
		return "float"
	case FieldByte:
		return "byte"
	default:
		return fmt.Sprintf("FieldType(%d)", uint8(t))
	}
}

// DataDogField describes one column of an object list.
type DataDogField struct {
	Name string
	Type FieldType
}

// DataDogObject is one named row. Values line up with the owning list's fields
// and hold bool, int32, string, float32 or uint8.
type DataDogObject struct {
	Name   string
	Values []any

	list *DataDogList
}

// Value returns the raw value of a field.
func (o *DataDogObject) Value(field string) (any, bool) {
	if o.list == nil {
		return nil, false
	}
	i, ok := o.list.index[field]
	if !ok || i >= len(o.Values) {
		return nil, false
	}
	return o.Values[i], true
}

// Bool returns a bool field, or false when missing.
func (o *DataDogObject) Bool(field string) bool {
	v, _ := o.Value(field)
	switch b := v.(type) {
	case bool:
		return b
	case uint8:
		return b != 0
	case int32:
		return b != 0
	}
	return false
}

// Int returns an integer field, or 0 when missing.
func (o *DataDogObject) Int(field string) int32 {
	v, _ := o.Value(field)
	switch n := v.(type) {
	case int32:
		return n
	case uint8:
		return int32(n)
	case bool:
		if n {
			return 1
		}
	}
	return 0
}

// Text returns a string field, or "" when missing.
func (o *DataDogObject) Text(field string) string {
	v, _ := o.Value(field)
	s, _ := v.(string)
	return s
}

// Float returns a float field, or 0 when missing.
func (o *DataDogObject) Float(field string) float32 {
	v, _ := o.Value(field)
	f, _ := v.(float32)
	return f
}

// DataDogList is a named list of objects sharing one field schema.
type DataDogList struct {
	Name    string
	Fields  []DataDogField
	Objects []*DataDogObject

	index map[string]int
}

// NewDataDogList creates an empty list with the given schema.
func NewDataDogList(name string, fields ...DataDogField) *DataDogList {
	l := &DataDogList{Name: name, Fields: fields}
	l.reindex()
	return l
}

func (l *DataDogList) reindex() {
	l.index = make(map[string]int, len(l.Fields))
	for i, f := range l.Fields {
		l.index[f.Name] = i
	}
}

// Add appends an object. values must match the field order.
func (l *DataDogList) Add(name string, values ...any) *DataDogObject {
	obj := &DataDogObject{Name: name, Values: values, list: l}
	l.Objects = append(l.Objects, obj)
	return obj
}

// DataDog is a parsed tabular container.
type DataDog struct {
	Version uint16
	Lists   map[string]*DataDogList
	order   []string
}

// NewDataDog creates an empty container.
func NewDataDog() *DataDog {
	return &DataDog{Version: 1, Lists: make(map[string]*DataDogList)}
}

// AddList appends a list to the container.
func (d *DataDog) AddList(l *DataDogList) {
	if _, ok := d.Lists[l.Name]; !ok {
		d.order = append(d.order, l.Name)
	}
	d.Lists[l.Name] = l
}

// List returns the named list or a MissingTableError.
func (d *DataDog) List(name string) (*DataDogList, error) {
	l, ok := d.Lists[name]
	if !ok {
		return nil, &MissingTableError{List: name}
	}
	return l, nil
}

// Require returns the named lists in order, failing on the first one missing.
func (d *DataDog) Require(names ...string) ([]*DataDogList, error) {
	lists := make([]*DataDogList, len(names))
	for i, name := range names {
		l, err := d.List(name)
		if err != nil {
			return nil, err
		}
		lists[i] = l
	}
	return lists, nil
}

// ListNames returns list names in file order.
func (d *DataDog) ListNames() []string {
	return append([]string(nil), d.order...)
}

// ParseDataDog parses a DataDog tabular container.
func ParseDataDog(data []byte) (*DataDog, error) {
	r := codec.NewReader(data)

	magic, err := r.Bytes(4, "magic")
	if err != nil {
		return nil, err
	}
	if string(magic) != dataDogMagic {
		return nil, ErrInvalidDataDogMagic
	}

	dd := NewDataDog()
	if dd.Version, err = r.Uint16("version"); err != nil {
		return nil, err
	}

	listCount, err := r.Uint32("list count")
	if err != nil {
		return nil, err
	}

	for i := uint32(0); i < listCount; i++ {
		l, err := readDataDogList(r)
		if err != nil {
			return nil, fmt.Errorf("list %d: %w", i, err)
		}
		dd.AddList(l)
	}

	return dd, nil
}

func readDataDogList(r *codec.Reader) (*DataDogList, error) {
	name, err := r.WString("list name")
	if err != nil {
		return nil, err
	}

	fieldCount, err := r.Uint16("field count")
	if err != nil {
		return nil, err
	}
	if int(fieldCount)*3 > r.Remaining() {
		return nil, r.Malformed("field count", fmt.Sprintf("%d fields cannot fit in %d bytes", fieldCount, r.Remaining()))
	}

	fields := make([]DataDogField, fieldCount)
	for i := range fields {
		if fields[i].Name, err = r.WString("field name"); err != nil {
			return nil, err
		}
		t, err := r.Uint8("field type")
		if err != nil {
			return nil, err
		}
		if t < uint8(FieldBool) || t > uint8(FieldByte) {
			return nil, r.Malformed("field type", fmt.Sprintf("unknown type %d for %q", t, fields[i].Name))
		}
		fields[i].Type = FieldType(t)
	}

	l := NewDataDogList(name, fields...)

	objectCount, err := r.Uint32("object count")
	if err != nil {
		return nil, err
	}
	if int(objectCount)*2 > r.Remaining() {
		return nil, r.Malformed("object count", fmt.Sprintf("%d objects cannot fit in %d bytes", objectCount, r.Remaining()))
	}

	for i := uint32(0); i < objectCount; i++ {
		objName, err := r.WString("object name")
		if err != nil {
			return nil, err
		}
		values := make([]any, len(fields))
		for j, f := range fields {
			if values[j], err = readDataDogValue(r, f.Type); err != nil {
				return nil, err
			}
		}
		l.Add(objName, values...)
	}

	return l, nil
}

func readDataDogValue(r *codec.Reader, t FieldType) (any, error) {
	switch t {
	case FieldBool:
		return r.Bool("bool value")
	case FieldInt:
		return r.Int32("int value")
	case FieldString:
		return r.WString("string value")
	case FieldFloat:
		return r.Float32("float value")
	default:
		return r.Uint8("byte value")
	}
}

// Encode serializes the container in the layout ParseDataDog reads.
func (d *DataDog) Encode() ([]byte, error) {
	w := codec.NewWriter()
	w.PutBytes([]byte(dataDogMagic))
	w.PutUint16(d.Version)
	w.PutUint32(uint32(len(d.order)))

	for _, name := range d.order {
		l := d.Lists[name]
		if err := w.PutWString(l.Name); err != nil {
			return nil, err
		}
		w.PutUint16(uint16(len(l.Fields)))
		for _, f := range l.Fields {
			if err := w.PutWString(f.Name); err != nil {
				return nil, err
			}
			w.PutUint8(uint8(f.Type))
		}
		w.PutUint32(uint32(len(l.Objects)))
		for _, obj := range l.Objects {
			if err := w.PutWString(obj.Name); err != nil {
				return nil, err
			}
			for j, f := range l.Fields {
				var v any
				if j < len(obj.Values) {
					v = obj.Values[j]
				}
				if err := writeDataDogValue(w, f, v); err != nil {
					return nil, fmt.Errorf("list %q object %q: %w", l.Name, obj.Name, err)
				}
			}
		}
	}

	return w.Bytes(), nil
}

func writeDataDogValue(w *codec.Writer, f DataDogField, v any) error {
	switch f.Type {
	case FieldBool:
		b, _ := v.(bool)
		w.PutBool(b)
	case FieldInt:
		n, _ := v.(int32)
		w.PutInt32(n)
	case FieldString:
		s, _ := v.(string)
		return w.PutWString(s)
	case FieldFloat:
		x, _ := v.(float32)
		w.PutFloat32(x)
	case FieldByte:
		b, _ := v.(uint8)
		w.PutUint8(b)
	default:
		return fmt.Errorf("field %q has unknown type %d", f.Name, f.Type)
	}
	return nil
}

// ParseDataDogFile parses a DataDog container from disk.
func ParseDataDogFile(path string) (*DataDog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading DataDog file: %w", err)
	}
	return ParseDataDog(data)
}
