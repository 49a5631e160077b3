package reference

import (
	"errors"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/insighted/schoolprofile/internal/models"
)

// ErrEmptyReference is returned when an index is built from no rows.
// Dropdowns and resolution are unavailable until a dataset loads.
var ErrEmptyReference = errors.New("reference dataset is empty")

// node is one distinct value at a hierarchy level. Children are keyed by Key
// and listed in display order.
type node struct {
	display  string
	children map[string]*node
	order    []*node
}

func newNode(display string) *node {
	return &node{display: display, children: map[string]*node{}}
}

// child returns the child for value, creating it with value's casing on
// first sight. Empty or key-less values are not indexed.
func (n *node) child(value string) *node {
	k := Key(value)
	if k == "" {
		return nil
	}
	c, ok := n.children[k]
	if !ok {
		c = newNode(strings.TrimSpace(value))
		n.children[k] = c
		n.order = append(n.order, c)
	}
	return c
}

func (n *node) lookup(value string) *node {
	if n == nil {
		return nil
	}
	return n.children[Key(value)]
}

func (n *node) options() []string {
	if n == nil {
		return []string{}
	}
	out := make([]string, len(n.order))
	for i, c := range n.order {
		out[i] = c.display
	}
	return out
}

func (n *node) sort(c *collate.Collator) {
	slices.SortStableFunc(n.order, func(a, b *node) int {
		if r := c.CompareString(a.display, b.display); r != 0 {
			return r
		}
		return strings.Compare(a.display, b.display)
	})
	for _, ch := range n.order {
		ch.sort(c)
	}
}

// Index is an immutable lookup structure over a reference dataset. It holds
// two independent trees: region > province > municipality > barangay, and
// division > district. Legislative districts form a flat list.
// An Index is safe for concurrent use.
type Index struct {
	rows        []models.ReferenceRow
	geo         *node
	divisions   *node
	legislative *node
	byID        map[string]int
	byName      map[string]int
}

// Build groups rows by normalized key at every level. Display values keep
// the casing of the first row that mentions them; options are ordered with
// a locale-independent collation.
func Build(rows []models.ReferenceRow) (*Index, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyReference
	}

	ix := &Index{
		rows:        rows,
		geo:         newNode(""),
		divisions:   newNode(""),
		legislative: newNode(""),
		byID:        make(map[string]int, len(rows)),
		byName:      make(map[string]int, len(rows)),
	}

	for i, r := range rows {
		h := r.Hierarchy
		if n := ix.geo.child(h.Region); n != nil {
			if n = n.child(h.Province); n != nil {
				if n = n.child(h.Municipality); n != nil {
					n.child(h.Barangay)
				}
			}
		}
		if n := ix.divisions.child(h.Division); n != nil {
			n.child(h.District)
		}
		ix.legislative.child(h.LegislativeDistrict)

		if id := BaseIdentifier(r.Identifier); id != "" {
			if _, dup := ix.byID[id]; !dup {
				ix.byID[id] = i
			}
		}
		if name := FoldName(r.DisplayName); name != "" {
			if _, dup := ix.byName[name]; !dup {
				ix.byName[name] = i
			}
		}
	}

	c := collate.New(language.Und, collate.IgnoreCase, collate.Numeric)
	ix.geo.sort(c)
	ix.divisions.sort(c)
	ix.legislative.sort(c)

	return ix, nil
}

// Len returns the number of rows in the index.
func (ix *Index) Len() int { return len(ix.rows) }

// IdentifierCount returns the number of distinct school identifiers.
func (ix *Index) IdentifierCount() int { return len(ix.byID) }

// OptionsFor lists the distinct values at level that are consistent with the
// parents already chosen. It returns an empty slice when the parent chain
// has no children or level is unknown.
func (ix *Index) OptionsFor(level models.Level, parents models.Hierarchy) []string {
	return ix.levelNode(level, parents).options()
}

// DistrictsOf lists the districts belonging to division.
func (ix *Index) DistrictsOf(division string) []string {
	return ix.OptionsFor(models.LevelDistrict, models.Hierarchy{Division: division})
}

// levelNode returns the node whose children are the options for level.
func (ix *Index) levelNode(level models.Level, p models.Hierarchy) *node {
	switch level {
	case models.LevelRegion:
		return ix.geo
	case models.LevelProvince:
		return ix.geo.lookup(p.Region)
	case models.LevelMunicipality:
		return ix.geo.lookup(p.Region).lookup(p.Province)
	case models.LevelBarangay:
		return ix.geo.lookup(p.Region).lookup(p.Province).lookup(p.Municipality)
	case models.LevelDivision:
		return ix.divisions
	case models.LevelDistrict:
		return ix.divisions.lookup(p.Division)
	case models.LevelLegislativeDistrict:
		return ix.legislative
	default:
		return nil
	}
}
