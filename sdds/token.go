package sdds

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Position is a location in the stream.
type Position struct {
	Line   int
	Column int
	Offset int64
}

// String returns the position as "line:column".
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// source wraps the input with position bookkeeping. The header tokenizer
// and both page codecs read through the same source, so the data section
// begins at the exact byte where the header stopped.
type source struct {
	r   *bufio.Reader
	pos Position
}

func newSource(r io.Reader) *source {
	return &source{r: bufio.NewReader(r), pos: Position{Line: 1, Column: 1}}
}

// readByte consumes one byte and advances the position.
func (s *source) readByte() (byte, error) {
	b, err := s.r.ReadByte()
	if err != nil {
		return 0, err
	}
	s.pos.Offset++
	if b == '\n' {
		s.pos.Line++
		s.pos.Column = 1
	} else {
		s.pos.Column++
	}
	return b, nil
}

// peek returns the next byte without consuming it.
func (s *source) peek() (byte, bool) {
	b, err := s.r.Peek(1)
	if err != nil {
		return 0, false
	}
	return b[0], true
}

// readLine consumes through the next newline and returns the line without
// its terminator. A final line lacking a newline is still returned; the
// following call reports io.EOF.
func (s *source) readLine() (string, error) {
	line, err := s.r.ReadString('\n')
	if len(line) == 0 {
		return "", err
	}
	s.pos.Offset += int64(len(line))
	if line[len(line)-1] == '\n' {
		s.pos.Line++
		s.pos.Column = 1
		line = line[:len(line)-1]
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
	} else {
		s.pos.Column += len(line)
	}
	return line, nil
}

// readFull fills buf, advancing the offset. Line and column stop being
// meaningful once binary data starts; errors report the offset alone.
func (s *source) readFull(buf []byte) error {
	n, err := io.ReadFull(s.r, buf)
	s.pos.Offset += int64(n)
	return err
}

// CommandField is one key=value pair inside a namelist command.
type CommandField struct {
	Key    string
	Value  string
	Quoted bool
	Pos    Position
}

// Command is one parsed namelist command, &name through &end.
type Command struct {
	Name   string // without the leading &
	Fields []CommandField
	Pos    Position // position of the opening &
}

// find returns the last field bound to key. Namelist repetition keeps the
// final assignment.
func (c *Command) find(key string) (CommandField, bool) {
	for i := len(c.Fields) - 1; i >= 0; i-- {
		if c.Fields[i].Key == key {
			return c.Fields[i], true
		}
	}
	return CommandField{}, false
}

// field returns the last value bound to key.
func (c *Command) field(key string) (string, bool) {
	f, ok := c.find(key)
	return f.Value, ok
}

// tokenizer scans namelist commands from the header. Whitespace, commas,
// and newlines all separate fields; commands may span lines. A comment
// line starting with ! is skipped, except that a !# byte-order directive
// before the first command is captured.
type tokenizer struct {
	src        *source
	directive  string
	sawCommand bool
}

func newTokenizer(src *source) *tokenizer {
	return &tokenizer{src: src}
}

// next returns the next command, io.EOF at end of input.
func (t *tokenizer) next() (*Command, error) {
	for {
		b, ok := t.src.peek()
		if !ok {
			return nil, io.EOF
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			t.src.readByte()
		case '!':
			t.comment()
		case '&':
			t.sawCommand = true
			return t.command()
		default:
			return nil, &Error{
				Err:    ErrMalformedNamelist,
				Offset: t.src.pos.Offset,
				Page:   -1,
				Detail: "text outside namelist command",
			}
		}
	}
}

// comment consumes a !-comment line, capturing the byte-order directive
// when one appears before the first command.
func (t *tokenizer) comment() {
	line, err := t.src.readLine()
	if err != nil {
		return
	}
	if t.sawCommand || !strings.HasPrefix(line, "!#") {
		return
	}
	switch strings.TrimSpace(line[2:]) {
	case "little-endian":
		t.directive = "little-endian"
	case "big-endian":
		t.directive = "big-endian"
	}
}

// command scans &name through the matching &end.
func (t *tokenizer) command() (*Command, error) {
	start := t.src.pos
	t.src.readByte()
	name := t.ident()
	if name == "" {
		return nil, &Error{
			Err:    ErrMalformedNamelist,
			Offset: start.Offset,
			Page:   -1,
			Detail: "& without command name",
		}
	}
	if name == "end" {
		return nil, &Error{
			Err:    ErrMalformedNamelist,
			Offset: start.Offset,
			Page:   -1,
			Detail: "&end without open command",
		}
	}
	cmd := &Command{Name: name, Pos: start}
	unterminated := &Error{
		Err:    ErrMalformedNamelist,
		Offset: start.Offset,
		Page:   -1,
		Detail: fmt.Sprintf("&%s not terminated by &end", name),
	}
	for {
		t.skipSeparators()
		b, ok := t.src.peek()
		if !ok {
			return nil, unterminated
		}
		if b == '&' {
			t.src.readByte()
			if t.ident() != "end" {
				return nil, unterminated
			}
			return cmd, nil
		}
		f, err := t.commandField(start)
		if err != nil {
			return nil, err
		}
		cmd.Fields = append(cmd.Fields, f)
	}
}

// skipSeparators consumes whitespace, newlines, and the commas between
// fields.
func (t *tokenizer) skipSeparators() {
	for {
		b, ok := t.src.peek()
		if !ok {
			return
		}
		switch b {
		case ' ', '\t', '\r', '\n', ',':
			t.src.readByte()
		default:
			return
		}
	}
}

// skipBlanks consumes spaces and tabs only.
func (t *tokenizer) skipBlanks() {
	for {
		b, ok := t.src.peek()
		if !ok || (b != ' ' && b != '\t') {
			return
		}
		t.src.readByte()
	}
}

// ident consumes an identifier run.
func (t *tokenizer) ident() string {
	var sb strings.Builder
	for {
		b, ok := t.src.peek()
		if !ok || !isIdentByte(b) {
			return sb.String()
		}
		t.src.readByte()
		sb.WriteByte(b)
	}
}

func isIdentByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_'
}

// commandField scans one key=value pair. cmdStart anchors quoting errors
// to the enclosing command.
func (t *tokenizer) commandField(cmdStart Position) (CommandField, error) {
	fpos := t.src.pos
	key := t.ident()
	if key == "" {
		return CommandField{}, &Error{
			Err:    ErrMalformedNamelist,
			Offset: fpos.Offset,
			Page:   -1,
			Detail: "expected key=value",
		}
	}
	t.skipBlanks()
	if b, ok := t.src.peek(); !ok || b != '=' {
		return CommandField{}, &Error{
			Err:    ErrMalformedNamelist,
			Offset: fpos.Offset,
			Page:   -1,
			Detail: fmt.Sprintf("key %q without value", key),
		}
	}
	t.src.readByte()
	t.skipBlanks()
	if b, ok := t.src.peek(); ok && b == '"' {
		val, err := t.quoted(cmdStart)
		if err != nil {
			return CommandField{}, err
		}
		return CommandField{Key: key, Value: val, Quoted: true, Pos: fpos}, nil
	}
	return CommandField{Key: key, Value: t.bareword(), Pos: fpos}, nil
}

// bareword runs until a comma, newline, or the & of the closing &end.
func (t *tokenizer) bareword() string {
	var sb strings.Builder
	for {
		b, ok := t.src.peek()
		if !ok || b == ',' || b == '\n' || b == '\r' || b == '&' {
			break
		}
		t.src.readByte()
		sb.WriteByte(b)
	}
	return strings.TrimRight(sb.String(), " \t")
}

// quoted scans a double-quoted value with \" and \\ escapes. Quotes do
// not span lines.
func (t *tokenizer) quoted(cmdStart Position) (string, error) {
	unterminated := &Error{
		Err:    ErrMalformedNamelist,
		Offset: cmdStart.Offset,
		Page:   -1,
		Detail: "unterminated quoted value",
	}
	t.src.readByte()
	var sb strings.Builder
	for {
		b, err := t.src.readByte()
		if err != nil || b == '\n' {
			return "", unterminated
		}
		switch b {
		case '"':
			return sb.String(), nil
		case '\\':
			nb, err := t.src.readByte()
			if err != nil {
				return "", unterminated
			}
			if nb != '"' && nb != '\\' {
				sb.WriteByte('\\')
			}
			sb.WriteByte(nb)
		default:
			sb.WriteByte(b)
		}
	}
}

// finishLine consumes the remainder of the current line, leaving the
// source at the first byte after &data's newline.
func (t *tokenizer) finishLine() {
	for {
		b, err := t.src.readByte()
		if err != nil || b == '\n' {
			return
		}
	}
}
