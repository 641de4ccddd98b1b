// sddsquery - SDDS header and page inspector
//
// Usage:
//
//	sddsquery [-pages] [-json] [-rows N] file.sdds...
//
// Prints the data set description, the declared fields, and the data
// mode. With -pages it walks the data pages and reports row counts and
// parameter values. With -json it emits one JSON summary per file.
// Gzip-compressed inputs are read transparently.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/QJohn2017/rsbeams/sdds"
)

var (
	showPages = flag.Bool("pages", false, "walk data pages and print row counts")
	asJSON    = flag.Bool("json", false, "emit a JSON summary per file")
	rowCount  = flag.Int("rows", 0, "page row count for binary no_row_counts files")
)

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		os.Exit(1)
	}

	exit := 0
	for _, path := range flag.Args() {
		if err := query(path); err != nil {
			fmt.Fprintf(os.Stderr, "sddsquery: %s: %v\n", path, err)
			exit = 1
		}
	}
	os.Exit(exit)
}

func usage() {
	fmt.Fprint(os.Stderr, `sddsquery - SDDS header and page inspector

Usage:
  sddsquery [options] file.sdds...

Options:
  -pages      walk data pages and print row counts and parameter values
  -json       emit a JSON summary per file
  -rows N     page row count for binary no_row_counts files

Gzip-compressed inputs are detected by their magic bytes and read
transparently.
`)
}

func query(path string) error {
	opts := sdds.DefaultReadOptions()
	if *rowCount > 0 {
		opts.RowCount = *rowCount
	}
	r, err := sdds.OpenOptions(path, opts)
	if err != nil {
		return err
	}
	defer r.Close()
	schema, err := r.ReadHeader()
	if err != nil {
		return err
	}

	var pages []*sdds.Page
	if *showPages {
		for {
			page, err := r.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
			pages = append(pages, page)
		}
	}

	if *asJSON {
		return printJSON(path, schema, pages)
	}
	printText(path, schema, pages)
	return nil
}

func printText(path string, schema *sdds.Schema, pages []*sdds.Page) {
	fmt.Print(path)
	if fi, err := os.Stat(path); err == nil {
		fmt.Printf(" (%s)", humanize.Bytes(uint64(fi.Size())))
	}
	fmt.Println()

	if d := schema.Description; d != nil {
		if d.Text != "" {
			fmt.Printf("  description: %s\n", d.Text)
		}
		if d.Contents != "" {
			fmt.Printf("  contents:    %s\n", d.Contents)
		}
	}
	mode := schema.Mode
	fmt.Printf("  mode: %s", mode.Mode)
	if mode.Mode == sdds.ModeBinary {
		fmt.Printf(" (%s-endian)", mode.Endianness)
	}
	if mode.NoRowCounts {
		fmt.Print(" no_row_counts")
	}
	fmt.Println()

	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  KIND\tNAME\tTYPE\tUNITS\tDESCRIPTION")
	for _, f := range schema.Fields() {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n", f.Kind, f.Name, f.Type, f.Units, f.Description)
	}
	tw.Flush()

	var totalRows int64
	for _, page := range pages {
		fmt.Printf("  page %d: %s rows\n", page.Index(), humanize.Comma(int64(page.RowCount())))
		for _, f := range schema.Parameters() {
			v, _ := page.Parameter(f.Name)
			fmt.Printf("    %s = %s\n", f.Name, v)
		}
		totalRows += int64(page.RowCount())
	}
	if len(pages) > 0 {
		fmt.Printf("  total: %d pages, %s rows\n", len(pages), humanize.Comma(totalRows))
	}
}

type fileSummary struct {
	Path        string         `json:"path"`
	Description string         `json:"description,omitempty"`
	Contents    string         `json:"contents,omitempty"`
	Mode        string         `json:"mode"`
	Endian      string         `json:"endian,omitempty"`
	NoRowCounts bool           `json:"no_row_counts,omitempty"`
	Fields      []fieldSummary `json:"fields"`
	Pages       []pageSummary  `json:"pages,omitempty"`
}

type fieldSummary struct {
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Units       string `json:"units,omitempty"`
	Description string `json:"description,omitempty"`
}

type pageSummary struct {
	Page       int            `json:"page"`
	Rows       int            `json:"rows"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

func printJSON(path string, schema *sdds.Schema, pages []*sdds.Page) error {
	sum := fileSummary{
		Path: path,
		Mode: schema.Mode.Mode.String(),
	}
	if d := schema.Description; d != nil {
		sum.Description = d.Text
		sum.Contents = d.Contents
	}
	if schema.Mode.Mode == sdds.ModeBinary {
		sum.Endian = schema.Mode.Endianness.String()
	}
	sum.NoRowCounts = schema.Mode.NoRowCounts
	for _, f := range schema.Fields() {
		sum.Fields = append(sum.Fields, fieldSummary{
			Kind:        f.Kind.String(),
			Name:        f.Name,
			Type:        f.Type.String(),
			Units:       f.Units,
			Description: f.Description,
		})
	}
	for _, page := range pages {
		ps := pageSummary{Page: page.Index(), Rows: page.RowCount()}
		if params := schema.Parameters(); len(params) > 0 {
			ps.Parameters = make(map[string]any, len(params))
			for _, f := range params {
				v, _ := page.Parameter(f.Name)
				ps.Parameters[f.Name] = jsonValue(v)
			}
		}
		sum.Pages = append(sum.Pages, ps)
	}

	out, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// jsonValue maps a scalar to its natural JSON shape. Non-finite floats
// have no JSON encoding and fall back to their text form.
func jsonValue(v sdds.Value) any {
	switch v.Type() {
	case sdds.TypeDouble, sdds.TypeFloat:
		f, _ := v.Float64()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Sprint(f)
		}
		return f
	case sdds.TypeLong, sdds.TypeShort:
		n, _ := v.Int64()
		return n
	case sdds.TypeCharacter:
		c, _ := v.AsChar()
		return string(c)
	case sdds.TypeString:
		s, _ := v.AsStr()
		return s
	case sdds.TypeBoolean:
		b, _ := v.AsBool()
		return b
	}
	return nil
}
