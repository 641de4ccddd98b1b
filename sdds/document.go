package sdds

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Document is a fully materialized data set: the schema plus every page.
type Document struct {
	Schema *Schema
	Pages  []*Page
}

// ReadDocument materializes an entire stream.
func ReadDocument(r io.Reader) (*Document, error) {
	return ReadDocumentOptions(r, DefaultReadOptions())
}

// ReadDocumentOptions materializes an entire stream with the given
// options.
func ReadDocumentOptions(r io.Reader, opts ReadOptions) (*Document, error) {
	return documentFrom(NewReaderOptions(r, opts))
}

func documentFrom(r *Reader) (*Document, error) {
	schema, err := r.ReadHeader()
	if err != nil {
		return nil, err
	}
	pages, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	return &Document{Schema: schema, Pages: pages}, nil
}

// Write encodes the document to w in the schema's data mode.
func (d *Document) Write(w io.Writer) error {
	wr, err := NewWriter(w, d.Schema)
	if err != nil {
		return err
	}
	if err := wr.WriteHeader(); err != nil {
		return err
	}
	for _, p := range d.Pages {
		if err := wr.WritePage(p); err != nil {
			return err
		}
	}
	return wr.Flush()
}

// WriteFile writes the document to path, gzip-compressing when the name
// ends in .gz.
func (d *Document) WriteFile(path string) error {
	w, err := Create(path, d.Schema)
	if err != nil {
		return err
	}
	if err := w.WriteHeader(); err != nil {
		w.Close()
		return err
	}
	for _, p := range d.Pages {
		if err := w.WritePage(p); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// Open opens path for reading. Gzip input is detected by its magic
// bytes and decompressed transparently; error offsets then refer to the
// decompressed stream. Close the returned Reader to release the file.
func Open(path string) (*Reader, error) {
	return OpenOptions(path, DefaultReadOptions())
}

// OpenOptions opens path for reading with the given options.
func OpenOptions(path string, opts ReadOptions) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReader(f)
	var src io.Reader = br
	closers := []io.Closer{f}
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, err
		}
		src = gz
		closers = []io.Closer{gz, f}
	}
	r := NewReaderOptions(src, opts)
	r.closers = closers
	return r, nil
}

// Load reads a whole file, transparently decompressing gzip.
func Load(path string) (*Document, error) {
	return LoadOptions(path, DefaultReadOptions())
}

// LoadOptions reads a whole file with the given options.
func LoadOptions(path string, opts ReadOptions) (*Document, error) {
	r, err := OpenOptions(path, opts)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return documentFrom(r)
}

// Create opens path for writing pages of schema. A name ending in .gz
// gets gzip compression. Close the returned Writer to flush and release
// the file.
func Create(path string, schema *Schema) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	var dst io.Writer = f
	closers := []io.Closer{f}
	if strings.HasSuffix(path, ".gz") {
		gz := gzip.NewWriter(f)
		dst = gz
		closers = []io.Closer{gz, f}
	}
	w, err := NewWriter(dst, schema)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closers = closers
	return w, nil
}
