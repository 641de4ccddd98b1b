package sdds

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FieldKind distinguishes the three field classes a header declares.
type FieldKind uint8

const (
	KindParameter FieldKind = iota
	KindColumn
	KindArray
)

// String returns the command name for the kind.
func (k FieldKind) String() string {
	switch k {
	case KindParameter:
		return "parameter"
	case KindColumn:
		return "column"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// FieldDef describes one named field of a schema.
type FieldDef struct {
	Name         string
	Kind         FieldKind
	Type         Type
	Units        string
	Symbol       string
	Description  string
	FormatString string

	// FixedValue, when non-nil, is the constant parameter value carried by
	// the header itself. Fixed fields never appear in the data section;
	// the reader materializes them into every page.
	FixedValue *Value

	// FieldLength is the declared element count for arrays. Zero means
	// the length is dynamic and recorded per page.
	FieldLength int

	// Extra preserves unrecognized keys for round-trip fidelity.
	Extra map[string]string
}

// Description is the optional &description command.
type Description struct {
	Text     string
	Contents string
	Extra    map[string]string
}

// Include is an unresolved &include reference. The library records the
// reference and leaves resolution to the caller.
type Include struct {
	Filename string
	Extra    map[string]string
}

// Mode selects the physical encoding of the data section.
type Mode uint8

const (
	ModeInvalid Mode = iota
	ModeASCII
	ModeBinary
)

// String returns the &data mode keyword.
func (m Mode) String() string {
	switch m {
	case ModeASCII:
		return "ascii"
	case ModeBinary:
		return "binary"
	default:
		return "invalid"
	}
}

// ParseMode maps a &data mode keyword to its Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "ascii":
		return ModeASCII, nil
	case "binary":
		return ModeBinary, nil
	}
	return ModeInvalid, fmt.Errorf("%w: %q", ErrUnknownDataMode, s)
}

// Endianness selects the byte order of binary pages.
type Endianness uint8

const (
	EndianNative Endianness = iota // resolved to the host order on write
	EndianLittle
	EndianBig
)

// String returns the endianness name.
func (e Endianness) String() string {
	switch e {
	case EndianLittle:
		return "little"
	case EndianBig:
		return "big"
	default:
		return "native"
	}
}

// ParseEndianness maps an endianness name to its value.
func ParseEndianness(s string) (Endianness, error) {
	switch s {
	case "native", "":
		return EndianNative, nil
	case "little":
		return EndianLittle, nil
	case "big":
		return EndianBig, nil
	}
	return EndianNative, fmt.Errorf("sdds: unknown endianness %q", s)
}

// byteOrder resolves the endianness to an encoding/binary order.
func (e Endianness) byteOrder() binary.ByteOrder {
	switch e {
	case EndianLittle:
		return binary.LittleEndian
	case EndianBig:
		return binary.BigEndian
	}
	return binary.NativeEndian
}

// nativeEndianness reports the concrete byte order of the host.
func nativeEndianness() Endianness {
	var buf [2]byte
	binary.NativeEndian.PutUint16(buf[:], 1)
	if buf[0] == 1 {
		return EndianLittle
	}
	return EndianBig
}

// DataMode mirrors the &data command.
type DataMode struct {
	Mode        Mode
	Endianness  Endianness // ignored in ASCII mode
	NoRowCounts bool
	Extra       map[string]string
}

// Schema is a parsed or built header: the ordered field registry plus the
// data mode. All three field kinds share one namespace.
type Schema struct {
	Description *Description
	Includes    []Include
	Extra       []Command // unrecognized commands, preserved
	Mode        DataMode

	fields []*FieldDef
	byName map[string]*FieldDef
	params []*FieldDef
	cols   []*FieldDef
	arrs   []*FieldDef
}

func newSchema() *Schema {
	return &Schema{byName: make(map[string]*FieldDef)}
}

// addField registers a definition, rejecting duplicate names.
func (s *Schema) addField(f *FieldDef) error {
	if _, dup := s.byName[f.Name]; dup {
		return &Error{Err: ErrDuplicateFieldName, Offset: -1, Page: -1, Field: f.Name}
	}
	s.fields = append(s.fields, f)
	s.byName[f.Name] = f
	switch f.Kind {
	case KindParameter:
		s.params = append(s.params, f)
	case KindColumn:
		s.cols = append(s.cols, f)
	case KindArray:
		s.arrs = append(s.arrs, f)
	}
	return nil
}

// Fields returns every definition in declaration order. The slice is the
// schema's own; treat it as read-only.
func (s *Schema) Fields() []*FieldDef {
	return s.fields
}

// Field returns the definition with the given name, nil if absent.
func (s *Schema) Field(name string) *FieldDef {
	return s.byName[name]
}

// Parameters returns the parameter definitions in declaration order.
func (s *Schema) Parameters() []*FieldDef {
	return s.params
}

// Columns returns the column definitions in declaration order.
func (s *Schema) Columns() []*FieldDef {
	return s.cols
}

// Arrays returns the array definitions in declaration order.
func (s *Schema) Arrays() []*FieldDef {
	return s.arrs
}

// WithMode returns a copy of the schema carrying a different data mode.
// Field definitions are shared, not copied.
func (s *Schema) WithMode(m DataMode) *Schema {
	c := *s
	c.Mode = m
	return &c
}

// Canonical renders the complete header text for the schema.
func (s *Schema) Canonical() string {
	return canonicalHeader(s, s.Mode)
}

// ============================================================
// Builder
// ============================================================

// SchemaBuilder assembles a Schema programmatically. Methods chain; the
// first error sticks and is reported by Build.
type SchemaBuilder struct {
	schema *Schema
	err    error
}

// NewSchemaBuilder returns an empty builder.
func NewSchemaBuilder() *SchemaBuilder {
	return &SchemaBuilder{schema: newSchema()}
}

// Parameter adds a parameter definition.
func (b *SchemaBuilder) Parameter(name string, typ Type, opts ...FieldOption) *SchemaBuilder {
	return b.add(KindParameter, name, typ, opts)
}

// Column adds a column definition.
func (b *SchemaBuilder) Column(name string, typ Type, opts ...FieldOption) *SchemaBuilder {
	return b.add(KindColumn, name, typ, opts)
}

// Array adds an array definition.
func (b *SchemaBuilder) Array(name string, typ Type, opts ...FieldOption) *SchemaBuilder {
	return b.add(KindArray, name, typ, opts)
}

func (b *SchemaBuilder) add(kind FieldKind, name string, typ Type, opts []FieldOption) *SchemaBuilder {
	if b.err != nil {
		return b
	}
	f := &FieldDef{Name: name, Kind: kind, Type: typ}
	for _, opt := range opts {
		opt(f)
	}
	if err := validateField(f); err != nil {
		b.err = err
		return b
	}
	if err := b.schema.addField(f); err != nil {
		b.err = err
	}
	return b
}

// Describe sets the &description command.
func (b *SchemaBuilder) Describe(text, contents string) *SchemaBuilder {
	if b.err != nil {
		return b
	}
	b.schema.Description = &Description{Text: text, Contents: contents}
	return b
}

// Include records an &include reference.
func (b *SchemaBuilder) Include(filename string) *SchemaBuilder {
	if b.err != nil {
		return b
	}
	b.schema.Includes = append(b.schema.Includes, Include{Filename: filename})
	return b
}

// Mode sets the data mode.
func (b *SchemaBuilder) Mode(m DataMode) *SchemaBuilder {
	if b.err != nil {
		return b
	}
	b.schema.Mode = m
	return b
}

// Build returns the schema or the first recorded error.
func (b *SchemaBuilder) Build() (*Schema, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.schema, nil
}

// validateField checks the structural rules a definition must satisfy no
// matter whether it came from a header or from the builder.
func validateField(f *FieldDef) error {
	if f.Name == "" {
		return &Error{Err: ErrMalformedNamelist, Offset: -1, Page: -1, Detail: "field without name"}
	}
	if f.Type == TypeInvalid {
		return &Error{Err: ErrMissingType, Offset: -1, Page: -1, Field: f.Name}
	}
	if f.Type > TypeBoolean {
		return &Error{Err: ErrUnknownFieldType, Offset: -1, Page: -1, Field: f.Name}
	}
	if f.FixedValue != nil {
		if f.Kind != KindParameter {
			return &Error{
				Err: ErrMalformedNamelist, Offset: -1, Page: -1, Field: f.Name,
				Detail: "fixed_value is only valid on parameters",
			}
		}
		if f.FixedValue.Type() != f.Type {
			return &Error{
				Err: ErrTypeMismatch, Offset: -1, Page: -1, Field: f.Name,
				Detail: fmt.Sprintf("fixed_value is %s, field is %s", f.FixedValue.Type(), f.Type),
			}
		}
	}
	if f.FieldLength < 0 {
		return &Error{
			Err: ErrMalformedNamelist, Offset: -1, Page: -1, Field: f.Name,
			Detail: "negative field_length",
		}
	}
	if f.FieldLength > 0 && f.Kind != KindArray {
		return &Error{
			Err: ErrMalformedNamelist, Offset: -1, Page: -1, Field: f.Name,
			Detail: "field_length is only valid on arrays",
		}
	}
	return nil
}

// FieldOption customizes a field definition.
type FieldOption func(*FieldDef)

// WithUnits sets the units key.
func WithUnits(units string) FieldOption {
	return func(f *FieldDef) { f.Units = units }
}

// WithSymbol sets the symbol key.
func WithSymbol(symbol string) FieldOption {
	return func(f *FieldDef) { f.Symbol = symbol }
}

// WithDescription sets the description key.
func WithDescription(desc string) FieldOption {
	return func(f *FieldDef) { f.Description = desc }
}

// WithFormatString sets the format_string key.
func WithFormatString(fs string) FieldOption {
	return func(f *FieldDef) { f.FormatString = fs }
}

// WithFixedValue pins a parameter to a constant carried by the header.
func WithFixedValue(v Value) FieldOption {
	return func(f *FieldDef) { f.FixedValue = &v }
}

// WithFieldLength declares a fixed array length.
func WithFieldLength(n int) FieldOption {
	return func(f *FieldDef) { f.FieldLength = n }
}

// WithExtra attaches an unrecognized key, preserved in the header.
func WithExtra(key, value string) FieldOption {
	return func(f *FieldDef) {
		if f.Extra == nil {
			f.Extra = make(map[string]string)
		}
		f.Extra[key] = value
	}
}

// ============================================================
// Canonical header rendering
// ============================================================

// canonicalHeader renders the header text for a schema under the given
// data mode. The writer passes a resolved mode so the byte-order directive
// always matches the bytes that follow.
func canonicalHeader(s *Schema, mode DataMode) string {
	var sb strings.Builder
	sb.WriteString("SDDS1\n")
	if mode.Mode == ModeBinary {
		switch mode.Endianness {
		case EndianLittle:
			sb.WriteString("!# little-endian\n")
		case EndianBig:
			sb.WriteString("!# big-endian\n")
		}
	}
	if s.Description != nil {
		sb.WriteString("&description ")
		if s.Description.Text != "" {
			renderKey(&sb, "text", s.Description.Text)
		}
		if s.Description.Contents != "" {
			renderKey(&sb, "contents", s.Description.Contents)
		}
		renderExtra(&sb, s.Description.Extra)
		sb.WriteString("&end\n")
	}
	for _, inc := range s.Includes {
		sb.WriteString("&include ")
		renderKey(&sb, "filename", inc.Filename)
		renderExtra(&sb, inc.Extra)
		sb.WriteString("&end\n")
	}
	for _, f := range s.params {
		renderField(&sb, f)
	}
	for _, f := range s.cols {
		renderField(&sb, f)
	}
	for _, f := range s.arrs {
		renderField(&sb, f)
	}
	for i := range s.Extra {
		renderCommand(&sb, &s.Extra[i])
	}
	sb.WriteString("&data ")
	renderKey(&sb, "mode", mode.Mode.String())
	if mode.NoRowCounts {
		renderKey(&sb, "no_row_counts", "1")
	}
	renderExtra(&sb, mode.Extra)
	sb.WriteString("&end\n")
	return sb.String()
}

func renderField(sb *strings.Builder, f *FieldDef) {
	sb.WriteString("&")
	sb.WriteString(f.Kind.String())
	sb.WriteString(" ")
	renderKey(sb, "name", f.Name)
	renderKey(sb, "type", f.Type.String())
	if f.Units != "" {
		renderKey(sb, "units", f.Units)
	}
	if f.Symbol != "" {
		renderKey(sb, "symbol", f.Symbol)
	}
	if f.Description != "" {
		renderKey(sb, "description", f.Description)
	}
	if f.FormatString != "" {
		renderKey(sb, "format_string", f.FormatString)
	}
	if f.FieldLength > 0 {
		renderKey(sb, "field_length", strconv.Itoa(f.FieldLength))
	}
	if f.FixedValue != nil {
		renderKey(sb, "fixed_value", rawToken(*f.FixedValue))
	}
	renderExtra(sb, f.Extra)
	sb.WriteString("&end\n")
}

// renderCommand re-renders a preserved unrecognized command with its
// original field order.
func renderCommand(sb *strings.Builder, cmd *Command) {
	sb.WriteString("&")
	sb.WriteString(cmd.Name)
	sb.WriteString(" ")
	for _, f := range cmd.Fields {
		renderKey(sb, f.Key, f.Value)
	}
	sb.WriteString("&end\n")
}

// renderKey emits one key=value pair followed by the field separator.
func renderKey(sb *strings.Builder, key, value string) {
	sb.WriteString(key)
	sb.WriteString("=")
	sb.WriteString(maybeQuote(value))
	sb.WriteString(", ")
}

func renderExtra(sb *strings.Builder, extra map[string]string) {
	if len(extra) == 0 {
		return
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		renderKey(sb, k, extra[k])
	}
}
