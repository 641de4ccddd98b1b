package sdds

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// parseHeader reads the header from src. On success the source is
// positioned at the first byte of the data section.
func parseHeader(src *source, opts ReadOptions) (*Schema, error) {
	if err := parseVersion(src); err != nil {
		return nil, err
	}
	tok := newTokenizer(src)
	schema := newSchema()
	sawField := false
	for {
		cmd, err := tok.next()
		if err == io.EOF {
			return nil, &Error{
				Err:    ErrMissingDataCommand,
				Offset: src.pos.Offset,
				Page:   -1,
				Detail: "header ended before &data",
			}
		}
		if err != nil {
			return nil, err
		}
		switch cmd.Name {
		case "description":
			if schema.Description != nil || sawField {
				return nil, &Error{
					Err:    ErrMalformedNamelist,
					Offset: cmd.Pos.Offset,
					Page:   -1,
					Detail: "&description must appear once, before field definitions",
				}
			}
			schema.Description = parseDescription(cmd)
		case "parameter", "column", "array":
			sawField = true
			f, err := parseFieldCommand(cmd)
			if err != nil {
				return nil, err
			}
			if err := schema.addField(f); err != nil {
				if e, ok := err.(*Error); ok && e.Offset < 0 {
					e.Offset = cmd.Pos.Offset
				}
				return nil, err
			}
		case "include":
			inc, err := parseInclude(cmd)
			if err != nil {
				return nil, err
			}
			schema.Includes = append(schema.Includes, inc)
		case "data":
			mode, err := parseDataCommand(cmd, tok.directive, opts)
			if err != nil {
				return nil, err
			}
			schema.Mode = mode
			tok.finishLine()
			return schema, nil
		default:
			schema.Extra = append(schema.Extra, *cmd)
		}
	}
}

// parseVersion checks the version tag on the first non-blank line.
func parseVersion(src *source) error {
	for {
		start := src.pos
		line, err := src.readLine()
		if err != nil {
			return &Error{
				Err:    ErrUnsupportedVersion,
				Offset: src.pos.Offset,
				Page:   -1,
				Detail: "missing SDDS version tag",
			}
		}
		tag := strings.TrimSpace(line)
		if tag == "" {
			continue
		}
		if tag == "SDDS1" {
			return nil
		}
		detail := fmt.Sprintf("unrecognized tag %q", tag)
		if strings.HasPrefix(tag, "SDDS") {
			detail = fmt.Sprintf("version %q not supported", tag)
		}
		return &Error{Err: ErrUnsupportedVersion, Offset: start.Offset, Page: -1, Detail: detail}
	}
}

// parseFieldCommand turns a &parameter, &column, or &array command into a
// FieldDef. Key order inside the command is free; real emitters put type
// first, last, or anywhere between.
func parseFieldCommand(cmd *Command) (*FieldDef, error) {
	var kind FieldKind
	switch cmd.Name {
	case "parameter":
		kind = KindParameter
	case "column":
		kind = KindColumn
	case "array":
		kind = KindArray
	}
	f := &FieldDef{Kind: kind}
	var (
		typeRaw, fixedRaw, lenRaw string
		hasType, hasFixed, hasLen bool
		typePos, fixedPos, lenPos Position
	)
	for _, cf := range cmd.Fields {
		switch cf.Key {
		case "name":
			f.Name = cf.Value
		case "type":
			typeRaw, hasType, typePos = cf.Value, true, cf.Pos
		case "units":
			f.Units = cf.Value
		case "symbol":
			f.Symbol = cf.Value
		case "description":
			f.Description = cf.Value
		case "format_string":
			f.FormatString = cf.Value
		case "fixed_value":
			fixedRaw, hasFixed, fixedPos = cf.Value, true, cf.Pos
		case "field_length":
			// Interpreted for arrays; preserved opaquely elsewhere (elegant
			// uses it on string columns with different semantics).
			if kind == KindArray {
				lenRaw, hasLen, lenPos = cf.Value, true, cf.Pos
			} else {
				setExtra(&f.Extra, cf.Key, cf.Value)
			}
		default:
			setExtra(&f.Extra, cf.Key, cf.Value)
		}
	}
	if f.Name == "" {
		return nil, &Error{
			Err:    ErrMalformedNamelist,
			Offset: cmd.Pos.Offset,
			Page:   -1,
			Detail: fmt.Sprintf("&%s without name", cmd.Name),
		}
	}
	if !hasType {
		return nil, &Error{Err: ErrMissingType, Offset: cmd.Pos.Offset, Page: -1, Field: f.Name}
	}
	typ, err := ParseType(typeRaw)
	if err != nil {
		return nil, &Error{
			Err:    ErrUnknownFieldType,
			Offset: typePos.Offset,
			Page:   -1,
			Field:  f.Name,
			Detail: strconv.Quote(typeRaw),
		}
	}
	f.Type = typ
	if hasFixed {
		if kind != KindParameter {
			return nil, &Error{
				Err:    ErrMalformedNamelist,
				Offset: fixedPos.Offset,
				Page:   -1,
				Field:  f.Name,
				Detail: "fixed_value is only valid on parameters",
			}
		}
		v, err := parseScalar(fixedRaw, typ)
		if err != nil {
			return nil, &Error{
				Err:    ErrMalformedNamelist,
				Offset: fixedPos.Offset,
				Page:   -1,
				Field:  f.Name,
				Detail: "bad fixed_value: " + err.Error(),
			}
		}
		f.FixedValue = &v
	}
	if hasLen {
		n, err := strconv.Atoi(lenRaw)
		if err != nil || n < 0 {
			return nil, &Error{
				Err:    ErrMalformedNamelist,
				Offset: lenPos.Offset,
				Page:   -1,
				Field:  f.Name,
				Detail: fmt.Sprintf("bad field_length %q", lenRaw),
			}
		}
		f.FieldLength = n
	}
	return f, nil
}

func parseDescription(cmd *Command) *Description {
	d := &Description{}
	for _, cf := range cmd.Fields {
		switch cf.Key {
		case "text":
			d.Text = cf.Value
		case "contents":
			d.Contents = cf.Value
		default:
			setExtra(&d.Extra, cf.Key, cf.Value)
		}
	}
	return d
}

func parseInclude(cmd *Command) (Include, error) {
	inc := Include{}
	for _, cf := range cmd.Fields {
		switch cf.Key {
		case "filename":
			inc.Filename = cf.Value
		default:
			setExtra(&inc.Extra, cf.Key, cf.Value)
		}
	}
	if inc.Filename == "" {
		return Include{}, &Error{
			Err:    ErrMalformedNamelist,
			Offset: cmd.Pos.Offset,
			Page:   -1,
			Detail: "&include without filename",
		}
	}
	return inc, nil
}

// parseDataCommand resolves the &data command plus the byte-order
// directive into a DataMode. Resolution order for binary byte order:
// endian key, then !# directive, then the caller's ReadOptions default.
func parseDataCommand(cmd *Command, directive string, opts ReadOptions) (DataMode, error) {
	m := DataMode{}
	var (
		modeRaw   string
		hasMode   bool
		modePos   Position
		endianSet bool
	)
	for _, cf := range cmd.Fields {
		switch cf.Key {
		case "mode":
			modeRaw, hasMode, modePos = cf.Value, true, cf.Pos
		case "no_row_counts":
			switch cf.Value {
			case "0":
				m.NoRowCounts = false
			case "1":
				m.NoRowCounts = true
			default:
				return DataMode{}, &Error{
					Err:    ErrMalformedNamelist,
					Offset: cf.Pos.Offset,
					Page:   -1,
					Detail: fmt.Sprintf("bad no_row_counts %q", cf.Value),
				}
			}
		case "endian":
			switch cf.Value {
			case "little":
				m.Endianness = EndianLittle
			case "big":
				m.Endianness = EndianBig
			default:
				return DataMode{}, &Error{
					Err:    ErrMalformedNamelist,
					Offset: cf.Pos.Offset,
					Page:   -1,
					Detail: fmt.Sprintf("bad endian %q", cf.Value),
				}
			}
			endianSet = true
		default:
			setExtra(&m.Extra, cf.Key, cf.Value)
		}
	}
	if !hasMode {
		return DataMode{}, &Error{
			Err:    ErrUnknownDataMode,
			Offset: cmd.Pos.Offset,
			Page:   -1,
			Detail: "&data without mode",
		}
	}
	mode, err := ParseMode(modeRaw)
	if err != nil {
		return DataMode{}, &Error{
			Err:    ErrUnknownDataMode,
			Offset: modePos.Offset,
			Page:   -1,
			Detail: strconv.Quote(modeRaw),
		}
	}
	m.Mode = mode
	if !endianSet {
		switch directive {
		case "little-endian":
			m.Endianness = EndianLittle
		case "big-endian":
			m.Endianness = EndianBig
		default:
			m.Endianness = opts.Endianness
		}
	}
	return m, nil
}

func setExtra(m *map[string]string, key, value string) {
	if *m == nil {
		*m = make(map[string]string)
	}
	(*m)[key] = value
}
