// Package catalog loads the medical-device reference catalog and keeps a
// normalized binary snapshot of it next to the other caches.
package catalog

import "fmt"

// Record is one reference entry of the catalog.
type Record struct {
	Name    string
	Code    string
	Level   int
	Purpose string // sku_ex column
	Usage   string // use_to column
}

// CompositeIndex returns the text that similarity is computed over.
func (r Record) CompositeIndex() string {
	return r.Purpose + r.Usage
}

// Origin says where the records of a Catalog came from.
type Origin string

const (
	OriginSnapshot Origin = "snapshot"
	OriginSource   Origin = "source"
	OriginSample   Origin = "sample"
)

// Catalog is the result of Store.Load.
//
// When the source or snapshot cannot be read, Records holds the built-in
// sample data, UsedFallback is true and Cause explains why.
type Catalog struct {
	Records      []Record
	Origin       Origin
	UsedFallback bool
	Cause        error
}

// CompositeIndices returns the composite index of every record in catalog order.
func (c *Catalog) CompositeIndices() []string {
	out := make([]string, len(c.Records))
	for i, r := range c.Records {
		out[i] = r.CompositeIndex()
	}
	return out
}

// LoadError describes why the catalog fell back to sample data.
type LoadError struct {
	Op   string
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
