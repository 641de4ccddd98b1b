package sdds

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func TestReadBinaryLittleEndian(t *testing.T) {
	hdr := "SDDS1\n!# little-endian\n" +
		"&parameter name=count, type=long, &end\n" +
		"&parameter name=label, type=string, &end\n" +
		"&column name=x, type=double, &end\n" +
		"&column name=ok, type=boolean, &end\n" +
		"&data mode=binary, &end\n"
	var b bytes.Buffer
	b.WriteString(hdr)
	le := binary.LittleEndian
	binary.Write(&b, le, int32(7))  // count
	b.Write([]byte{3, 0, 0, 0})     // label length
	b.WriteString("abc")            // label bytes
	binary.Write(&b, le, int32(3))  // row count
	rows := []struct {
		x  float64
		ok int32
	}{{1.5, 1}, {-2.25, 0}, {6.5e-4, 42}}
	for _, row := range rows {
		binary.Write(&b, le, row.x)
		binary.Write(&b, le, row.ok)
	}

	r := NewReader(bytes.NewReader(b.Bytes()))
	p, err := r.Next()
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	if v, _ := p.Parameter("count"); !v.Equal(Long(7)) {
		t.Errorf("count = %v, want long(7)", v)
	}
	if v, _ := p.Parameter("label"); !v.Equal(Str("abc")) {
		t.Errorf("label = %v, want string(\"abc\")", v)
	}
	x, _ := p.Column("x")
	if len(x) != 3 || !x[0].Equal(Double(1.5)) || !x[2].Equal(Double(6.5e-4)) {
		t.Errorf("x = %v", x)
	}
	// Canonical booleans are 0 or 1, but any nonzero decodes as true.
	ok, _ := p.Column("ok")
	wantOK := []bool{true, false, true}
	for i, v := range ok {
		if got, _ := v.AsBool(); got != wantOK[i] {
			t.Errorf("ok[%d] = %v, want %v", i, got, wantOK[i])
		}
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("Next = %v, want io.EOF", err)
	}
}

func TestReadBinaryBigEndian(t *testing.T) {
	hdr := "SDDS1\n!# big-endian\n" +
		"&parameter name=id, type=short, &end\n" +
		"&column name=x, type=float, &end\n" +
		"&column name=c, type=character, &end\n" +
		"&data mode=binary, &end\n"
	var b bytes.Buffer
	b.WriteString(hdr)
	be := binary.BigEndian
	binary.Write(&b, be, int16(-12)) // id
	binary.Write(&b, be, int32(2))   // row count
	binary.Write(&b, be, float32(0.5))
	b.WriteByte('A')
	binary.Write(&b, be, float32(-8))
	b.WriteByte('#')

	p, err := NewReader(bytes.NewReader(b.Bytes())).Next()
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	if v, _ := p.Parameter("id"); !v.Equal(Short(-12)) {
		t.Errorf("id = %v, want short(-12)", v)
	}
	x, _ := p.Column("x")
	if !x[0].Equal(Float(0.5)) || !x[1].Equal(Float(-8)) {
		t.Errorf("x = %v, want [0.5 -8]", x)
	}
	c, _ := p.Column("c")
	if !c[0].Equal(Char('A')) || !c[1].Equal(Char('#')) {
		t.Errorf("c = %v, want ['A' '#']", c)
	}
}

func TestReadBinaryArrays(t *testing.T) {
	hdr := "SDDS1\n!# little-endian\n" +
		"&column name=x, type=long, &end\n" +
		"&array name=names, type=string, &end\n" +
		"&array name=grid, type=long, field_length=2, &end\n" +
		"&data mode=binary, &end\n"
	var b bytes.Buffer
	b.WriteString(hdr)
	le := binary.LittleEndian
	binary.Write(&b, le, int32(1)) // row count
	binary.Write(&b, le, int32(5)) // x[0]
	binary.Write(&b, le, int32(2)) // names count
	binary.Write(&b, le, int32(2))
	b.WriteString("ab")
	binary.Write(&b, le, int32(0)) // empty string element
	binary.Write(&b, le, int32(10)) // grid, no count prefix
	binary.Write(&b, le, int32(20))

	p, err := NewReader(bytes.NewReader(b.Bytes())).Next()
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	names, _ := p.Array("names")
	if len(names) != 2 || !names[0].Equal(Str("ab")) || !names[1].Equal(Str("")) {
		t.Errorf("names = %v, want [ab, empty]", names)
	}
	grid, _ := p.Array("grid")
	if len(grid) != 2 || !grid[0].Equal(Long(10)) || !grid[1].Equal(Long(20)) {
		t.Errorf("grid = %v, want [10 20]", grid)
	}
}

func TestReadBinaryNoRowCounts(t *testing.T) {
	hdr := "SDDS1\n!# little-endian\n" +
		"&column name=x, type=double, &end\n" +
		"&data mode=binary, no_row_counts=1, &end\n"
	var b bytes.Buffer
	b.WriteString(hdr)
	le := binary.LittleEndian
	for _, f := range []float64{1.5, 2.5, 3.5, 4.5} {
		binary.Write(&b, le, f)
	}

	// Without an external row count the page size is unknowable.
	_, err := NewReader(bytes.NewReader(b.Bytes())).Next()
	if !errors.Is(err, ErrRowCountRequired) {
		t.Fatalf("Next error = %v, want ErrRowCountRequired", err)
	}

	r := NewReaderOptions(bytes.NewReader(b.Bytes()), ReadOptions{RowCount: 2})
	pages, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("len(pages) = %d, want 2", len(pages))
	}
	x, _ := pages[1].Column("x")
	if len(x) != 2 || !x[0].Equal(Double(3.5)) {
		t.Errorf("page 1 x = %v, want [3.5 4.5]", x)
	}
}

func TestReadBinaryHeaderOnly(t *testing.T) {
	hdr := "SDDS1\n!# little-endian\n" +
		"&parameter name=p, type=double, &end\n" +
		"&data mode=binary, &end\n"
	r := NewReader(bytes.NewReader([]byte(hdr)))
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("Next = %v, want io.EOF", err)
	}
}

func TestReadBinaryTruncation(t *testing.T) {
	le := binary.LittleEndian
	colHdr := "SDDS1\n!# little-endian\n&column name=x, type=double, &end\n&data mode=binary, &end\n"
	strHdr := "SDDS1\n!# little-endian\n&parameter name=s, type=string, &end\n&data mode=binary, &end\n"
	arrHdr := "SDDS1\n!# little-endian\n&array name=a, type=long, &end\n&data mode=binary, &end\n"

	tests := []struct {
		name      string
		build     func(b *bytes.Buffer)
		wantField string
	}{
		{
			"stream ends inside a row",
			func(b *bytes.Buffer) {
				b.WriteString(colHdr)
				binary.Write(b, le, int32(2))
				binary.Write(b, le, 1.5)
				b.Write([]byte{1, 2, 3}) // half a double
			},
			"x",
		},
		{
			"stream ends inside the row count",
			func(b *bytes.Buffer) {
				b.WriteString(colHdr)
				b.Write([]byte{2, 0}) // half an int32
			},
			"",
		},
		{
			"negative row count",
			func(b *bytes.Buffer) {
				b.WriteString(colHdr)
				binary.Write(b, le, int32(-5))
			},
			"",
		},
		{
			"negative string length",
			func(b *bytes.Buffer) {
				b.WriteString(strHdr)
				binary.Write(b, le, int32(-1))
			},
			"s",
		},
		{
			"string bytes truncated",
			func(b *bytes.Buffer) {
				b.WriteString(strHdr)
				binary.Write(b, le, int32(10))
				b.WriteString("abc")
			},
			"s",
		},
		{
			"negative array count",
			func(b *bytes.Buffer) {
				b.WriteString(arrHdr)
				binary.Write(b, le, int32(0)) // row count
				binary.Write(b, le, int32(-2))
			},
			"a",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b bytes.Buffer
			tt.build(&b)
			_, err := NewReader(bytes.NewReader(b.Bytes())).Next()
			if !errors.Is(err, ErrTruncatedStream) {
				t.Fatalf("Next error = %v, want ErrTruncatedStream", err)
			}
			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("error is %T, want *Error", err)
			}
			if e.Page != 0 {
				t.Errorf("Page = %d, want 0", e.Page)
			}
			if e.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", e.Field, tt.wantField)
			}
		})
	}
}
