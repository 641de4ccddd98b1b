package sdds

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// pageEncoder serializes one validated page.
type pageEncoder interface {
	writePage(p *Page, rows int) error
}

// Writer encodes an SDDS stream: the header once, then pages.
//
// WritePage validates the whole page before emitting anything, so a
// rejected page leaves the stream byte-for-byte unchanged and the
// writer usable. I/O failures are permanent.
type Writer struct {
	w           *bufio.Writer
	schema      *Schema
	mode        DataMode
	enc         pageEncoder
	wroteHeader bool
	page        int
	err         error
	closers     []io.Closer
}

// NewWriter returns a Writer that encodes pages of schema to w. The
// schema must carry a data mode (SchemaBuilder.Mode or Schema.WithMode).
func NewWriter(w io.Writer, schema *Schema) (*Writer, error) {
	if schema.Mode.Mode == ModeInvalid {
		return nil, &Error{Err: ErrUnknownDataMode, Offset: -1, Detail: "data mode not set"}
	}
	mode := schema.Mode
	if mode.Mode == ModeBinary && mode.Endianness == EndianNative {
		// Pin the header directive to the byte order actually emitted.
		mode.Endianness = nativeEndianness()
	}
	bw := bufio.NewWriter(w)
	wr := &Writer{w: bw, schema: schema, mode: mode}
	if mode.Mode == ModeBinary {
		wr.enc = &binaryEncoder{w: bw, schema: schema, order: mode.Endianness.byteOrder()}
	} else {
		wr.enc = &asciiEncoder{w: bw, schema: schema}
	}
	return wr, nil
}

// WriteHeader emits the header. WritePage calls it implicitly.
func (w *Writer) WriteHeader() error {
	if w.err != nil {
		return w.err
	}
	if w.wroteHeader {
		return nil
	}
	if _, err := w.w.WriteString(canonicalHeader(w.schema, w.mode)); err != nil {
		w.err = err
		return err
	}
	w.wroteHeader = true
	return nil
}

// WritePage appends one page to the stream.
func (w *Writer) WritePage(p *Page) error {
	if w.err != nil {
		return w.err
	}
	rows, err := validatePage(w.schema, p, w.page, w.mode)
	if err != nil {
		return err
	}
	if err := w.WriteHeader(); err != nil {
		return err
	}
	if err := w.enc.writePage(p, rows); err != nil {
		w.err = err
		return err
	}
	w.page++
	return nil
}

// Flush forces buffered output to the underlying writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if err := w.w.Flush(); err != nil {
		w.err = err
		return err
	}
	return nil
}

// Close flushes and then releases anything the writer owns (Create
// attaches the file and compressor here).
func (w *Writer) Close() error {
	err := w.Flush()
	for _, c := range w.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	w.closers = nil
	return err
}

// validatePage checks p against the schema and returns the row count.
func validatePage(schema *Schema, p *Page, page int, mode DataMode) (int, error) {
	fail := func(sentinel error, field, detail string) (int, error) {
		return 0, &Error{Err: sentinel, Offset: -1, Page: page, Field: field, Detail: detail}
	}
	for _, f := range schema.Parameters() {
		v, ok := p.Parameter(f.Name)
		if f.FixedValue != nil {
			// Never transmitted, but reject a conflicting type so the
			// mistake surfaces here rather than on read-back.
			if ok && v.Type() != f.Type {
				return fail(ErrTypeMismatch, f.Name, fmt.Sprintf("parameter is %s, want %s", v.Type(), f.Type))
			}
			continue
		}
		if !ok {
			return fail(ErrTypeMismatch, f.Name, "missing parameter value")
		}
		if err := validateValue(v, f.Type, mode); err != nil {
			return fail(ErrTypeMismatch, f.Name, err.Error())
		}
	}
	rows := -1
	for _, f := range schema.Columns() {
		vals, ok := p.Column(f.Name)
		if !ok {
			return fail(ErrTypeMismatch, f.Name, "missing column values")
		}
		if rows < 0 {
			rows = len(vals)
		} else if len(vals) != rows {
			return fail(ErrRowCountMismatch, f.Name, fmt.Sprintf("column has %d rows, want %d", len(vals), rows))
		}
		for _, v := range vals {
			if err := validateValue(v, f.Type, mode); err != nil {
				return fail(ErrTypeMismatch, f.Name, err.Error())
			}
		}
	}
	if rows < 0 {
		rows = 0
	}
	if rows > math.MaxInt32 {
		return fail(ErrRowCountMismatch, "", fmt.Sprintf("%d rows exceed the row count field", rows))
	}
	for _, f := range schema.Arrays() {
		vals, ok := p.Array(f.Name)
		if !ok {
			if f.FieldLength > 0 {
				return fail(ErrRowCountMismatch, f.Name, fmt.Sprintf("array has 0 elements, want %d", f.FieldLength))
			}
			// Absent dynamic arrays encode as empty.
			continue
		}
		if f.FieldLength > 0 && len(vals) != f.FieldLength {
			return fail(ErrRowCountMismatch, f.Name, fmt.Sprintf("array has %d elements, want %d", len(vals), f.FieldLength))
		}
		if f.FieldLength == 0 && len(vals) > math.MaxInt32 {
			return fail(ErrRowCountMismatch, f.Name, "array length exceeds the count field")
		}
		for _, v := range vals {
			if err := validateValue(v, f.Type, mode); err != nil {
				return fail(ErrTypeMismatch, f.Name, err.Error())
			}
		}
	}
	return rows, nil
}

func validateValue(v Value, typ Type, mode DataMode) error {
	if v.Type() != typ {
		return fmt.Errorf("value is %s, want %s", v.Type(), typ)
	}
	if mode.Mode == ModeASCII {
		// Quoted tokens cannot span lines, so line breaks have no
		// ascii encoding.
		switch typ {
		case TypeString:
			s, _ := v.AsStr()
			if strings.ContainsAny(s, "\n\r") {
				return errors.New("string with line break is not representable in ascii mode")
			}
		case TypeCharacter:
			ch, _ := v.AsChar()
			if ch == '\n' || ch == '\r' {
				return errors.New("character with line break is not representable in ascii mode")
			}
		}
	} else if typ == TypeString {
		s, _ := v.AsStr()
		if len(s) > math.MaxInt32 {
			return errors.New("string length exceeds the length field")
		}
	}
	return nil
}
