package sdds

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var errUnbalanced = errors.New("unbalanced quote in value")

// asciiDecoder reads row-oriented ASCII pages.
type asciiDecoder struct {
	src    *source
	schema *Schema
	page   int
}

func newASCIIDecoder(src *source, schema *Schema) *asciiDecoder {
	return &asciiDecoder{src: src, schema: schema}
}

// contentLine returns the next trimmed, non-blank, non-comment line.
func (d *asciiDecoder) contentLine() (string, Position, error) {
	for {
		start := d.src.pos
		line, err := d.src.readLine()
		if err != nil {
			return "", start, err
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed[0] == '!' {
			continue
		}
		return trimmed, start, nil
	}
}

// readPage decodes one page. io.EOF before any content line is a clean
// end of document.
func (d *asciiDecoder) readPage(index int) (*Page, error) {
	d.page = index
	p := NewPage()
	p.index = index
	first := true

	for _, f := range d.schema.Parameters() {
		if f.FixedValue != nil {
			p.params[f.Name] = *f.FixedValue
			continue
		}
		line, pos, err := d.contentLine()
		switch {
		case err == io.EOF && first:
			return nil, io.EOF
		case err == io.EOF:
			return nil, d.truncated(pos, "page ended inside parameters")
		case err != nil:
			return nil, err
		}
		first = false
		v, perr := parseParamValue(line, f.Type)
		if perr != nil {
			return nil, d.classify(perr, pos, f.Name)
		}
		p.params[f.Name] = v
	}

	cols := d.schema.Columns()
	vecs := make([][]Value, len(cols))
	if !d.schema.Mode.NoRowCounts {
		line, pos, err := d.contentLine()
		switch {
		case err == io.EOF && first:
			return nil, io.EOF
		case err == io.EOF:
			return nil, d.truncated(pos, "page ended before row count")
		case err != nil:
			return nil, err
		}
		first = false
		rows, perr := strconv.Atoi(line)
		if perr != nil || rows < 0 {
			return nil, d.truncated(pos, fmt.Sprintf("bad row count line %q", line))
		}
		for i := range vecs {
			vecs[i] = make([]Value, 0, rows)
		}
		for r := 0; r < rows; r++ {
			line, pos, err := d.contentLine()
			switch {
			case err == io.EOF:
				return nil, d.truncated(pos, fmt.Sprintf("page ended at row %d of %d", r, rows))
			case err != nil:
				return nil, err
			}
			if err := d.parseRow(line, pos, vecs); err != nil {
				return nil, err
			}
		}
		p.rows = rows
	} else {
		// The row block runs to the first blank line. EOF ends it too,
		// but EOF before any content means no further pages.
		for {
			start := d.src.pos
			line, err := d.src.readLine()
			if err == io.EOF && first {
				return nil, io.EOF
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, err
			}
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				first = false
				break
			}
			if trimmed[0] == '!' {
				continue
			}
			first = false
			if err := d.parseRow(trimmed, start, vecs); err != nil {
				return nil, err
			}
		}
		if len(vecs) > 0 {
			p.rows = len(vecs[0])
		}
	}
	for i, f := range cols {
		if vecs[i] == nil {
			vecs[i] = []Value{}
		}
		p.columns[f.Name] = vecs[i]
	}

	for _, f := range d.schema.Arrays() {
		n := f.FieldLength
		if n == 0 {
			line, pos, err := d.contentLine()
			switch {
			case err == io.EOF:
				return nil, d.truncated(pos, "page ended before array length")
			case err != nil:
				return nil, err
			}
			first = false
			c, perr := strconv.Atoi(line)
			if perr != nil || c < 0 {
				return nil, d.truncated(pos, fmt.Sprintf("bad array length line %q", line))
			}
			n = c
		}
		vals := make([]Value, 0, n)
		for len(vals) < n {
			line, pos, err := d.contentLine()
			switch {
			case err == io.EOF:
				return nil, d.truncated(pos, fmt.Sprintf("page ended inside array %q", f.Name))
			case err != nil:
				return nil, err
			}
			toks, terr := splitTokens(line)
			if terr != nil {
				return nil, &Error{
					Err:    ErrMalformedNamelist,
					Offset: pos.Offset,
					Page:   d.page,
					Field:  f.Name,
					Detail: terr.Error(),
				}
			}
			if len(vals)+len(toks) > n {
				return nil, &Error{
					Err:    ErrFieldCountMismatch,
					Offset: pos.Offset,
					Page:   d.page,
					Field:  f.Name,
					Detail: fmt.Sprintf("array has more than %d elements", n),
				}
			}
			for _, tk := range toks {
				v, perr := parseScalar(tk, f.Type)
				if perr != nil {
					return nil, &Error{
						Err:    ErrTypeMismatch,
						Offset: pos.Offset,
						Page:   d.page,
						Field:  f.Name,
						Detail: perr.Error(),
					}
				}
				vals = append(vals, v)
			}
		}
		p.arrays[f.Name] = vals
	}
	return p, nil
}

// parseRow splits one data line and appends a value to every column.
func (d *asciiDecoder) parseRow(line string, pos Position, vecs [][]Value) error {
	cols := d.schema.Columns()
	toks, err := splitTokens(line)
	if err != nil {
		return &Error{
			Err:    ErrMalformedNamelist,
			Offset: pos.Offset,
			Page:   d.page,
			Detail: err.Error(),
		}
	}
	if len(toks) != len(cols) {
		return &Error{
			Err:    ErrFieldCountMismatch,
			Offset: pos.Offset,
			Page:   d.page,
			Detail: fmt.Sprintf("row has %d fields, want %d", len(toks), len(cols)),
		}
	}
	for i, f := range cols {
		v, perr := parseScalar(toks[i], f.Type)
		if perr != nil {
			return &Error{
				Err:    ErrTypeMismatch,
				Offset: pos.Offset,
				Page:   d.page,
				Field:  f.Name,
				Detail: perr.Error(),
			}
		}
		vecs[i] = append(vecs[i], v)
	}
	return nil
}

func (d *asciiDecoder) truncated(pos Position, detail string) error {
	return &Error{Err: ErrTruncatedStream, Offset: pos.Offset, Page: d.page, Detail: detail}
}

// classify wraps a parameter-line parse failure: quoting violations keep
// the namelist class, everything else is a type mismatch.
func (d *asciiDecoder) classify(err error, pos Position, field string) error {
	sentinel := ErrTypeMismatch
	if errors.Is(err, errUnbalanced) {
		sentinel = ErrMalformedNamelist
	}
	return &Error{
		Err:    sentinel,
		Offset: pos.Offset,
		Page:   d.page,
		Field:  field,
		Detail: err.Error(),
	}
}

// parseParamValue converts one parameter line. An unquoted string value is
// the whole line.
func parseParamValue(line string, typ Type) (Value, error) {
	if typ == TypeString && !strings.HasPrefix(line, `"`) {
		return Str(line), nil
	}
	toks, err := splitTokens(line)
	if err != nil {
		return Value{}, err
	}
	if len(toks) != 1 {
		return Value{}, fmt.Errorf("expected a single %s value, got %d tokens", typ, len(toks))
	}
	return parseScalar(toks[0], typ)
}

// splitTokens splits a data line on whitespace, honoring double-quoted
// tokens with \" and \\ escapes.
func splitTokens(line string) ([]string, error) {
	var toks []string
	i := 0
	for i < len(line) {
		c := line[i]
		if c == ' ' || c == '\t' {
			i++
			continue
		}
		if c == '"' {
			i++
			var sb strings.Builder
			closed := false
			for i < len(line) {
				c := line[i]
				if c == '\\' && i+1 < len(line) && (line[i+1] == '"' || line[i+1] == '\\') {
					sb.WriteByte(line[i+1])
					i += 2
					continue
				}
				if c == '"' {
					closed = true
					i++
					break
				}
				sb.WriteByte(c)
				i++
			}
			if !closed {
				return nil, errUnbalanced
			}
			toks = append(toks, sb.String())
			continue
		}
		start := i
		for i < len(line) && line[i] != ' ' && line[i] != '\t' {
			i++
		}
		toks = append(toks, line[start:i])
	}
	return toks, nil
}

// asciiEncoder writes row-oriented ASCII pages. The Writer validates
// pages in full before any byte reaches the encoder.
type asciiEncoder struct {
	w      *bufio.Writer
	schema *Schema
}

func (e *asciiEncoder) writePage(p *Page, rows int) error {
	for _, f := range e.schema.Parameters() {
		if f.FixedValue != nil {
			continue
		}
		v, _ := p.Parameter(f.Name)
		if err := e.line(formatValue(v)); err != nil {
			return err
		}
	}
	if !e.schema.Mode.NoRowCounts {
		if err := e.line(strconv.Itoa(rows)); err != nil {
			return err
		}
	}
	cols := e.schema.Columns()
	var sb strings.Builder
	for r := 0; r < rows; r++ {
		sb.Reset()
		for ci, f := range cols {
			if ci > 0 {
				sb.WriteByte(' ')
			}
			vals, _ := p.Column(f.Name)
			sb.WriteString(formatValue(vals[r]))
		}
		if err := e.line(sb.String()); err != nil {
			return err
		}
	}
	if e.schema.Mode.NoRowCounts {
		// Blank line terminating the row block; the reader needs it to
		// find the page boundary.
		if err := e.line(""); err != nil {
			return err
		}
	}
	for _, f := range e.schema.Arrays() {
		vals, _ := p.Array(f.Name)
		if f.FieldLength == 0 {
			if err := e.line(strconv.Itoa(len(vals))); err != nil {
				return err
			}
		}
		if len(vals) > 0 {
			sb.Reset()
			for i, v := range vals {
				if i > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(formatValue(v))
			}
			if err := e.line(sb.String()); err != nil {
				return err
			}
		}
	}
	if !e.schema.Mode.NoRowCounts {
		// Visual separator between pages.
		if err := e.line(""); err != nil {
			return err
		}
	}
	return nil
}

func (e *asciiEncoder) line(s string) error {
	if _, err := e.w.WriteString(s); err != nil {
		return err
	}
	return e.w.WriteByte('\n')
}
