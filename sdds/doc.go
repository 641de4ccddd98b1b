// Package sdds reads and writes SDDS, the Self-Describing Data Set file
// format used by accelerator codes such as elegant and OPAL.
//
// An SDDS file is:
//   - Self-describing: a plain-text header declares every field before any
//     data appears
//   - Paged: the data section is a sequence of pages, each holding scalar
//     parameters, tabular columns, and arrays
//   - Dual-encoded: pages are stored either as row-oriented ASCII text or
//     as packed binary with a declared byte order
//
// # File Layout
//
//	SDDS1
//	!# little-endian
//	&description text="...", contents="...", &end
//	&parameter name=par1, type=double, &end
//	&column name=col1, type=double, units=m, &end
//	&array name=wave, type=double, &end
//	&data mode=binary, &end
//	<data pages>
//
// # Data Model
//
// Seven scalar types: double, float, long (32-bit), short, character,
// string, boolean. Parameters hold one scalar per page, columns hold one
// scalar per row, arrays hold a fixed or per-page number of elements.
// All field names share a single namespace.
//
// # Reading
//
//	r, err := sdds.Open("run.sdds")     // transparently unwraps gzip
//	defer r.Close()
//	schema, err := r.ReadHeader()
//	for {
//		page, err := r.Next()
//		if err == io.EOF {
//			break
//		}
//		...
//	}
//
// # Writing
//
//	b := sdds.NewSchemaBuilder()
//	b.Parameter("energy", sdds.TypeDouble, sdds.WithUnits("MeV"))
//	b.Column("x", sdds.TypeDouble, sdds.WithUnits("m"))
//	b.Mode(sdds.DataMode{Mode: sdds.ModeBinary, Endianness: sdds.EndianLittle})
//	schema, err := b.Build()
//
//	w, err := sdds.NewWriter(dst, schema)
//	err = w.WritePage(page)
//	err = w.Flush()
//
// Pages are validated in full before a single byte is emitted, so a failed
// WritePage leaves the output stream unchanged.
//
// # Error Reporting
//
// Every reader and writer error is an *Error wrapping one of the package
// sentinel errors (ErrMalformedNamelist, ErrTruncatedStream, ...) and
// carries the byte offset, page index, and field name where the failure
// was observed. Match classes with errors.Is.
package sdds
