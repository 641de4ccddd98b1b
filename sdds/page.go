package sdds

// Page is one page of a document: scalar parameter values, column vectors
// aligned by row index, and array vectors.
type Page struct {
	params  map[string]Value
	columns map[string][]Value
	arrays  map[string][]Value
	rows    int
	index   int
}

// NewPage returns an empty page for the write path.
func NewPage() *Page {
	return &Page{
		params:  make(map[string]Value),
		columns: make(map[string][]Value),
		arrays:  make(map[string][]Value),
		index:   -1,
	}
}

// Index returns the page's zero-based position in its document, -1 for
// pages built by hand.
func (p *Page) Index() int {
	return p.index
}

// RowCount returns the number of rows. For hand-built pages it follows
// the most recently set column until the writer validates uniformity.
func (p *Page) RowCount() int {
	return p.rows
}

// Parameter returns the value bound to a parameter name. Fixed-value
// parameters are materialized by the reader, so lookups on read pages
// succeed for them too.
func (p *Page) Parameter(name string) (Value, bool) {
	v, ok := p.params[name]
	return v, ok
}

// Column returns the vector bound to a column name.
func (p *Page) Column(name string) ([]Value, bool) {
	v, ok := p.columns[name]
	return v, ok
}

// Array returns the vector bound to an array name.
func (p *Page) Array(name string) ([]Value, bool) {
	v, ok := p.arrays[name]
	return v, ok
}

// SetParameter binds a parameter value.
func (p *Page) SetParameter(name string, v Value) {
	p.params[name] = v
}

// SetColumn binds a column vector.
func (p *Page) SetColumn(name string, vals []Value) {
	p.columns[name] = vals
	p.rows = len(vals)
}

// SetArray binds an array vector.
func (p *Page) SetArray(name string, vals []Value) {
	p.arrays[name] = vals
}
