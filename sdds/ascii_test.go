package sdds

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const asciiTestHeader = "SDDS1\n" +
	"&parameter name=p, type=long, &end\n" +
	"&column name=x, type=double, &end\n" +
	"&column name=tag, type=string, &end\n" +
	"&data mode=ascii, &end\n"

func TestReadASCIISimpleFixture(t *testing.T) {
	f, err := os.Open(filepath.Join("testdata", "simple.sdds"))
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer f.Close()

	r := NewReader(f)
	pages, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("len(pages) = %d, want 2", len(pages))
	}

	p0 := pages[0]
	if p0.Index() != 0 || p0.RowCount() != 2 {
		t.Errorf("page 0 index/rows = %d/%d, want 0/2", p0.Index(), p0.RowCount())
	}
	if v, ok := p0.Parameter("par1"); !ok || !v.Equal(Double(3.5)) {
		t.Errorf("par1 = %v, want double(3.5)", v)
	}
	if v, ok := p0.Parameter("par2"); !ok || !v.Equal(Str("first page")) {
		t.Errorf("par2 = %v, want string(\"first page\")", v)
	}
	col1, _ := p0.Column("col1")
	if len(col1) != 2 || !col1[0].Equal(Double(1.5)) || !col1[1].Equal(Double(-2.5)) {
		t.Errorf("col1 = %v, want [1.5 -2.5]", col1)
	}
	col2, _ := p0.Column("col2")
	if len(col2) != 2 || !col2[0].Equal(Str("alpha")) || !col2[1].Equal(Str("two words")) {
		t.Errorf("col2 = %v, want [alpha, two words]", col2)
	}

	p1 := pages[1]
	if p1.Index() != 1 || p1.RowCount() != 1 {
		t.Errorf("page 1 index/rows = %d/%d, want 1/1", p1.Index(), p1.RowCount())
	}
	if v, _ := p1.Parameter("par1"); !v.Equal(Double(4.25)) {
		t.Errorf("par1 = %v, want double(4.25)", v)
	}

	if _, err := r.Next(); err != io.EOF {
		t.Errorf("Next after ReadAll = %v, want io.EOF", err)
	}
}

func TestReadASCIINoRowCountsFixture(t *testing.T) {
	f, err := os.Open(filepath.Join("testdata", "opal_stat.sdds"))
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer f.Close()

	pages, err := NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("len(pages) = %d, want 2", len(pages))
	}
	if pages[0].RowCount() != 3 || pages[1].RowCount() != 1 {
		t.Errorf("rows = %d/%d, want 3/1", pages[0].RowCount(), pages[1].RowCount())
	}
	if v, _ := pages[0].Parameter("processors"); !v.Equal(Long(4)) {
		t.Errorf("processors = %v, want long(4)", v)
	}
	if v, _ := pages[0].Parameter("revision"); !v.Equal(Str("OPAL 2022.1 git rev. #8f16bcf")) {
		t.Errorf("revision = %v", v)
	}
	ts, _ := pages[0].Column("t")
	if !ts[2].Equal(Double(0.3)) {
		t.Errorf("t[2] = %v, want double(0.3)", ts[2])
	}
	n, _ := pages[1].Column("numParticles")
	if !n[0].Equal(Long(999)) {
		t.Errorf("numParticles[0] = %v, want long(999)", n[0])
	}
}

func TestReadASCIITolerantLayout(t *testing.T) {
	t.Run("blank lines and comments between rows", func(t *testing.T) {
		body := "7\n2\n\n1.5 alpha\n! interleaved comment\n2.5 \"two words\"\n"
		pages, err := NewReader(strings.NewReader(asciiTestHeader + body)).ReadAll()
		if err != nil {
			t.Fatalf("ReadAll error: %v", err)
		}
		if len(pages) != 1 || pages[0].RowCount() != 2 {
			t.Fatalf("pages/rows = %d/%d, want 1/2", len(pages), pages[0].RowCount())
		}
		tag, _ := pages[0].Column("tag")
		if !tag[1].Equal(Str("two words")) {
			t.Errorf("tag[1] = %v, want string(\"two words\")", tag[1])
		}
	})

	t.Run("crlf line endings", func(t *testing.T) {
		body := "7\r\n1\r\n1.5 beta\r\n"
		pages, err := NewReader(strings.NewReader(asciiTestHeader + body)).ReadAll()
		if err != nil {
			t.Fatalf("ReadAll error: %v", err)
		}
		tag, _ := pages[0].Column("tag")
		if !tag[0].Equal(Str("beta")) {
			t.Errorf("tag[0] = %v, want string(\"beta\")", tag[0])
		}
	})

	t.Run("escapes in data tokens", func(t *testing.T) {
		body := "7\n1\n3.5 \"say \\\"hi\\\"\"\n"
		pages, err := NewReader(strings.NewReader(asciiTestHeader + body)).ReadAll()
		if err != nil {
			t.Fatalf("ReadAll error: %v", err)
		}
		tag, _ := pages[0].Column("tag")
		if !tag[0].Equal(Str(`say "hi"`)) {
			t.Errorf("tag[0] = %v, want string(`say \"hi\"`)", tag[0])
		}
	})
}

func TestReadASCIIZeroRows(t *testing.T) {
	r := NewReader(strings.NewReader(asciiTestHeader + "7\n0\n"))
	p, err := r.Next()
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	if p.RowCount() != 0 {
		t.Errorf("RowCount = %d, want 0", p.RowCount())
	}
	if x, ok := p.Column("x"); !ok || len(x) != 0 {
		t.Errorf("x = %v, %v, want empty slice present", x, ok)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("Next = %v, want io.EOF", err)
	}
}

func TestReadASCIIStringParamForms(t *testing.T) {
	hdr := "SDDS1\n&parameter name=s, type=string, &end\n&data mode=ascii, &end\n"

	t.Run("bare value is the whole line", func(t *testing.T) {
		pages, err := NewReader(strings.NewReader(hdr + "two words here\n0\n")).ReadAll()
		if err != nil {
			t.Fatalf("ReadAll error: %v", err)
		}
		if v, _ := pages[0].Parameter("s"); !v.Equal(Str("two words here")) {
			t.Errorf("s = %v, want string(\"two words here\")", v)
		}
	})

	t.Run("quoted value keeps padding", func(t *testing.T) {
		pages, err := NewReader(strings.NewReader(hdr + "\"padded  \"\n0\n")).ReadAll()
		if err != nil {
			t.Fatalf("ReadAll error: %v", err)
		}
		if v, _ := pages[0].Parameter("s"); !v.Equal(Str("padded  ")) {
			t.Errorf("s = %v, want string(\"padded  \")", v)
		}
	})

	t.Run("trailing junk after quote", func(t *testing.T) {
		_, err := NewReader(strings.NewReader(hdr + "\"a\" b\n0\n")).ReadAll()
		if !errors.Is(err, ErrTypeMismatch) {
			t.Errorf("ReadAll error = %v, want ErrTypeMismatch", err)
		}
	})
}

func TestReadASCIIArrays(t *testing.T) {
	hdr := "SDDS1\n" +
		"&array name=wave, type=double, &end\n" +
		"&array name=grid, type=long, field_length=4, &end\n" +
		"&data mode=ascii, &end\n"

	t.Run("dynamic count then elements across lines", func(t *testing.T) {
		body := "0\n3\n1.5 2.5 3.5\n10 20\n30 40\n"
		pages, err := NewReader(strings.NewReader(hdr + body)).ReadAll()
		if err != nil {
			t.Fatalf("ReadAll error: %v", err)
		}
		wave, _ := pages[0].Array("wave")
		if len(wave) != 3 || !wave[2].Equal(Double(3.5)) {
			t.Errorf("wave = %v, want 3 elements ending in 3.5", wave)
		}
		grid, _ := pages[0].Array("grid")
		if len(grid) != 4 || !grid[3].Equal(Long(40)) {
			t.Errorf("grid = %v, want 4 elements ending in 40", grid)
		}
	})

	t.Run("zero-length dynamic array", func(t *testing.T) {
		body := "0\n0\n10 20 30 40\n"
		pages, err := NewReader(strings.NewReader(hdr + body)).ReadAll()
		if err != nil {
			t.Fatalf("ReadAll error: %v", err)
		}
		wave, ok := pages[0].Array("wave")
		if !ok || len(wave) != 0 {
			t.Errorf("wave = %v, %v, want empty slice present", wave, ok)
		}
	})

	t.Run("line oversupplies elements", func(t *testing.T) {
		body := "0\n2\n1.5 2.5 3.5\n"
		_, err := NewReader(strings.NewReader(hdr + body)).ReadAll()
		if !errors.Is(err, ErrFieldCountMismatch) {
			t.Fatalf("ReadAll error = %v, want ErrFieldCountMismatch", err)
		}
		var e *Error
		if errors.As(err, &e) && e.Field != "wave" {
			t.Errorf("Field = %q, want %q", e.Field, "wave")
		}
	})
}

func TestReadASCIIErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"row too short", "7\n1\n1.5\n", ErrFieldCountMismatch},
		{"row too long", "7\n1\n1.5 a b\n", ErrFieldCountMismatch},
		{"bad cell literal", "7\n1\nxx a\n", ErrTypeMismatch},
		{"bad row count line", "7\nmany\n", ErrTruncatedStream},
		{"negative row count", "7\n-2\n", ErrTruncatedStream},
		{"rows truncated", "7\n3\n1.5 a\n", ErrTruncatedStream},
		{"parameters truncated", "7\n", ErrTruncatedStream},
		{"unbalanced quote in row", "7\n1\n1.5 \"oops\n", ErrMalformedNamelist},
		{"bad parameter literal", "x\n", ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(strings.NewReader(asciiTestHeader + tt.body)).ReadAll()
			if !errors.Is(err, tt.want) {
				t.Fatalf("ReadAll error = %v, want %v", err, tt.want)
			}
			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("error is %T, want *Error", err)
			}
			if e.Page != 0 {
				t.Errorf("Page = %d, want 0", e.Page)
			}
		})
	}
}

func TestReadASCIINoRowCounts(t *testing.T) {
	hdr := "SDDS1\n" +
		"&parameter name=p, type=long, &end\n" +
		"&column name=x, type=double, &end\n" +
		"&column name=tag, type=string, &end\n" +
		"&data mode=ascii, no_row_counts=1, &end\n"

	t.Run("blank line separates pages", func(t *testing.T) {
		body := "5\n1.5 a\n\n6\n2.5 b\n\n"
		pages, err := NewReader(strings.NewReader(hdr + body)).ReadAll()
		if err != nil {
			t.Fatalf("ReadAll error: %v", err)
		}
		if len(pages) != 2 {
			t.Fatalf("len(pages) = %d, want 2", len(pages))
		}
		if v, _ := pages[1].Parameter("p"); !v.Equal(Long(6)) {
			t.Errorf("page 1 p = %v, want long(6)", v)
		}
	})

	t.Run("eof terminates the last row block", func(t *testing.T) {
		body := "5\n1.5 a\n2.5 b"
		r := NewReader(strings.NewReader(hdr + body))
		p, err := r.Next()
		if err != nil {
			t.Fatalf("Next error: %v", err)
		}
		if p.RowCount() != 2 {
			t.Errorf("RowCount = %d, want 2", p.RowCount())
		}
		if _, err := r.Next(); err != io.EOF {
			t.Errorf("Next = %v, want io.EOF", err)
		}
	})

	t.Run("immediate blank line is a zero-row page", func(t *testing.T) {
		hdr := "SDDS1\n&column name=x, type=double, &end\n&data mode=ascii, no_row_counts=1, &end\n"
		body := "1.5\n2.5\n\n\n3.5\n"
		pages, err := NewReader(strings.NewReader(hdr + body)).ReadAll()
		if err != nil {
			t.Fatalf("ReadAll error: %v", err)
		}
		rows := make([]int, len(pages))
		for i, p := range pages {
			rows[i] = p.RowCount()
		}
		want := []int{2, 0, 1}
		if len(rows) != 3 || rows[0] != want[0] || rows[1] != want[1] || rows[2] != want[2] {
			t.Errorf("rows = %v, want %v", rows, want)
		}
	})
}
