package sdds

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// binaryDecoder reads packed binary pages.
type binaryDecoder struct {
	src    *source
	schema *Schema
	order  binary.ByteOrder
	opts   ReadOptions
	page   int
}

func newBinaryDecoder(src *source, schema *Schema, opts ReadOptions) *binaryDecoder {
	return &binaryDecoder{
		src:    src,
		schema: schema,
		order:  schema.Mode.Endianness.byteOrder(),
		opts:   opts,
	}
}

// readPage decodes one page. io.EOF exactly at a page boundary is a clean
// end of document; EOF anywhere inside a page is a truncation.
func (d *binaryDecoder) readPage(index int) (*Page, error) {
	if _, ok := d.src.peek(); !ok {
		return nil, io.EOF
	}
	d.page = index
	p := NewPage()
	p.index = index
	for _, f := range d.schema.Parameters() {
		if f.FixedValue != nil {
			p.params[f.Name] = *f.FixedValue
			continue
		}
		v, err := d.readValue(f.Type)
		if err != nil {
			return nil, d.annotate(err, f.Name)
		}
		p.params[f.Name] = v
	}
	rows := 0
	if d.schema.Mode.NoRowCounts {
		if d.opts.RowCount < 0 {
			return nil, &Error{
				Err:    ErrRowCountRequired,
				Offset: d.src.pos.Offset,
				Page:   index,
				Detail: "binary no_row_counts stream needs ReadOptions.RowCount",
			}
		}
		rows = d.opts.RowCount
	} else {
		n, err := d.readInt32()
		if err != nil {
			return nil, d.annotate(err, "")
		}
		if n < 0 {
			return nil, &Error{
				Err:    ErrTruncatedStream,
				Offset: d.src.pos.Offset,
				Page:   index,
				Detail: fmt.Sprintf("negative row count %d", n),
			}
		}
		rows = int(n)
	}
	p.rows = rows
	cols := d.schema.Columns()
	vecs := make([][]Value, len(cols))
	for i := range vecs {
		vecs[i] = make([]Value, 0, rows)
	}
	for r := 0; r < rows; r++ {
		for ci, f := range cols {
			v, err := d.readValue(f.Type)
			if err != nil {
				return nil, d.annotate(err, f.Name)
			}
			vecs[ci] = append(vecs[ci], v)
		}
	}
	for ci, f := range cols {
		p.columns[f.Name] = vecs[ci]
	}
	for _, f := range d.schema.Arrays() {
		n := f.FieldLength
		if n == 0 {
			c, err := d.readInt32()
			if err != nil {
				return nil, d.annotate(err, f.Name)
			}
			if c < 0 {
				return nil, &Error{
					Err:    ErrTruncatedStream,
					Offset: d.src.pos.Offset,
					Page:   index,
					Field:  f.Name,
					Detail: fmt.Sprintf("negative array length %d", c),
				}
			}
			n = int(c)
		}
		vals := make([]Value, 0, n)
		for i := 0; i < n; i++ {
			v, err := d.readValue(f.Type)
			if err != nil {
				return nil, d.annotate(err, f.Name)
			}
			vals = append(vals, v)
		}
		p.arrays[f.Name] = vals
	}
	return p, nil
}

func (d *binaryDecoder) readValue(t Type) (Value, error) {
	switch t {
	case TypeDouble:
		var buf [8]byte
		if err := d.readFull(buf[:]); err != nil {
			return Value{}, err
		}
		return Double(math.Float64frombits(d.order.Uint64(buf[:]))), nil
	case TypeFloat:
		var buf [4]byte
		if err := d.readFull(buf[:]); err != nil {
			return Value{}, err
		}
		return Float(math.Float32frombits(d.order.Uint32(buf[:]))), nil
	case TypeLong:
		n, err := d.readInt32()
		if err != nil {
			return Value{}, err
		}
		return Long(n), nil
	case TypeShort:
		var buf [2]byte
		if err := d.readFull(buf[:]); err != nil {
			return Value{}, err
		}
		return Short(int16(d.order.Uint16(buf[:]))), nil
	case TypeCharacter:
		var buf [1]byte
		if err := d.readFull(buf[:]); err != nil {
			return Value{}, err
		}
		return Char(buf[0]), nil
	case TypeBoolean:
		// Canonical encoding is 0 or 1; any nonzero decodes as true.
		n, err := d.readInt32()
		if err != nil {
			return Value{}, err
		}
		return Bool(n != 0), nil
	case TypeString:
		n, err := d.readInt32()
		if err != nil {
			return Value{}, err
		}
		if n < 0 {
			return Value{}, &Error{
				Err:    ErrTruncatedStream,
				Offset: d.src.pos.Offset,
				Page:   d.page,
				Detail: fmt.Sprintf("negative string length %d", n),
			}
		}
		buf := make([]byte, n)
		if err := d.readFull(buf); err != nil {
			return Value{}, err
		}
		return Str(string(buf)), nil
	}
	return Value{}, fmt.Errorf("sdds: invalid type %d", t)
}

// readFull maps short reads to the truncation error.
func (d *binaryDecoder) readFull(buf []byte) error {
	if err := d.src.readFull(buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return &Error{
				Err:    ErrTruncatedStream,
				Offset: d.src.pos.Offset,
				Page:   d.page,
				Detail: "stream ended inside page",
			}
		}
		return err
	}
	return nil
}

func (d *binaryDecoder) readInt32() (int32, error) {
	var buf [4]byte
	if err := d.readFull(buf[:]); err != nil {
		return 0, err
	}
	return int32(d.order.Uint32(buf[:])), nil
}

// annotate fills in field context on errors built in the low-level
// readers.
func (d *binaryDecoder) annotate(err error, field string) error {
	var e *Error
	if errors.As(err, &e) {
		if e.Page < 0 {
			e.Page = d.page
		}
		if e.Field == "" {
			e.Field = field
		}
	}
	return err
}

// binaryEncoder writes packed binary pages. The Writer validates pages in
// full before any byte reaches the encoder.
type binaryEncoder struct {
	w      *bufio.Writer
	schema *Schema
	order  binary.ByteOrder
}

func (e *binaryEncoder) writePage(p *Page, rows int) error {
	for _, f := range e.schema.Parameters() {
		if f.FixedValue != nil {
			continue
		}
		v, _ := p.Parameter(f.Name)
		if err := e.writeValue(v); err != nil {
			return err
		}
	}
	if !e.schema.Mode.NoRowCounts {
		if err := e.writeInt32(int32(rows)); err != nil {
			return err
		}
	}
	cols := e.schema.Columns()
	for r := 0; r < rows; r++ {
		for _, f := range cols {
			vals, _ := p.Column(f.Name)
			if err := e.writeValue(vals[r]); err != nil {
				return err
			}
		}
	}
	for _, f := range e.schema.Arrays() {
		vals, _ := p.Array(f.Name)
		if f.FieldLength == 0 {
			if err := e.writeInt32(int32(len(vals))); err != nil {
				return err
			}
		}
		for _, v := range vals {
			if err := e.writeValue(v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *binaryEncoder) writeValue(v Value) error {
	switch v.typ {
	case TypeDouble:
		var buf [8]byte
		e.order.PutUint64(buf[:], math.Float64bits(v.f))
		_, err := e.w.Write(buf[:])
		return err
	case TypeFloat:
		var buf [4]byte
		e.order.PutUint32(buf[:], math.Float32bits(float32(v.f)))
		_, err := e.w.Write(buf[:])
		return err
	case TypeLong:
		return e.writeInt32(int32(v.i))
	case TypeShort:
		var buf [2]byte
		e.order.PutUint16(buf[:], uint16(int16(v.i)))
		_, err := e.w.Write(buf[:])
		return err
	case TypeCharacter:
		return e.w.WriteByte(v.ch)
	case TypeBoolean:
		if v.b {
			return e.writeInt32(1)
		}
		return e.writeInt32(0)
	case TypeString:
		if err := e.writeInt32(int32(len(v.s))); err != nil {
			return err
		}
		_, err := e.w.WriteString(v.s)
		return err
	}
	return fmt.Errorf("sdds: invalid value")
}

func (e *binaryEncoder) writeInt32(n int32) error {
	var buf [4]byte
	e.order.PutUint32(buf[:], uint32(n))
	_, err := e.w.Write(buf[:])
	return err
}
