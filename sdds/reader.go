package sdds

import (
	"io"
)

// ReadOptions adjust how a stream is decoded.
type ReadOptions struct {
	// Endianness applies to binary pages when neither the stream
	// directive nor the &data command names a byte order.
	Endianness Endianness

	// RowCount supplies the rows per binary page when the header says
	// no_row_counts=1 and the stream therefore carries none. Negative
	// means unknown; decoding such a stream fails with
	// ErrRowCountRequired.
	RowCount int
}

// DefaultReadOptions returns the options NewReader uses.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{Endianness: EndianNative, RowCount: -1}
}

// pageDecoder turns the byte stream after the header into pages.
type pageDecoder interface {
	readPage(index int) (*Page, error)
}

// Reader decodes an SDDS stream: one header, then zero or more pages.
//
// Reading is strictly forward. Next returns io.EOF once the stream is
// exhausted; any other error is permanent and every later call returns
// the same error.
type Reader struct {
	src     *source
	opts    ReadOptions
	schema  *Schema
	dec     pageDecoder
	page    int
	err     error
	closers []io.Closer
}

// NewReader returns a Reader over r with default options.
func NewReader(r io.Reader) *Reader {
	return NewReaderOptions(r, DefaultReadOptions())
}

// NewReaderOptions returns a Reader over r with the given options.
func NewReaderOptions(r io.Reader, opts ReadOptions) *Reader {
	return &Reader{src: newSource(r), opts: opts}
}

// ReadHeader parses the header if that has not happened yet and returns
// the schema. Next calls it implicitly; calling it first is useful when
// the caller wants to inspect the schema before touching any page.
func (r *Reader) ReadHeader() (*Schema, error) {
	if r.schema != nil {
		return r.schema, nil
	}
	if r.err != nil {
		return nil, r.err
	}
	schema, err := parseHeader(r.src, r.opts)
	if err != nil {
		r.err = err
		return nil, err
	}
	r.schema = schema
	if schema.Mode.Mode == ModeBinary {
		r.dec = newBinaryDecoder(r.src, schema, r.opts)
	} else {
		r.dec = newASCIIDecoder(r.src, schema)
	}
	return schema, nil
}

// Schema returns the parsed header, or nil before ReadHeader succeeds.
func (r *Reader) Schema() *Schema { return r.schema }

// Next returns the next page, or io.EOF at the end of the stream.
func (r *Reader) Next() (*Page, error) {
	if r.schema == nil {
		if _, err := r.ReadHeader(); err != nil {
			return nil, err
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	p, err := r.dec.readPage(r.page)
	if err != nil {
		r.err = err
		return nil, err
	}
	r.page++
	return p, nil
}

// ReadAll drains the remaining pages.
func (r *Reader) ReadAll() ([]*Page, error) {
	var pages []*Page
	for {
		p, err := r.Next()
		if err == io.EOF {
			return pages, nil
		}
		if err != nil {
			return pages, err
		}
		pages = append(pages, p)
	}
}

// Close releases resources the reader owns. Open attaches the file and
// any decompressor here; a Reader built directly on an io.Reader owns
// nothing and Close is a no-op.
func (r *Reader) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	r.closers = nil
	return first
}
