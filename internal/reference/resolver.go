package reference

import (
	"github.com/insighted/schoolprofile/internal/models"
)

// ResolveByID finds the row whose identifier matches id once both are trimmed
// and stripped of any ".suffix". The second result is false when no row matches.
func (ix *Index) ResolveByID(id string) (models.ResolvedCandidate, bool) {
	i, ok := ix.byID[BaseIdentifier(id)]
	if !ok {
		return models.ResolvedCandidate{}, false
	}
	return ix.candidate(ix.rows[i]), true
}

// ResolveByName finds the row whose display name equals name, ignoring case.
// When several rows share a name the first one in dataset order wins; this
// is not a ranking of the best match.
func (ix *Index) ResolveByName(name string) (models.ResolvedCandidate, bool) {
	key := FoldName(name)
	if key == "" {
		return models.ResolvedCandidate{}, false
	}
	i, ok := ix.byName[key]
	if !ok {
		return models.ResolvedCandidate{}, false
	}
	return ix.candidate(ix.rows[i]), true
}

func (ix *Index) candidate(r models.ReferenceRow) models.ResolvedCandidate {
	return models.ResolvedCandidate{
		SchoolID:       BaseIdentifier(r.Identifier),
		SchoolName:     r.DisplayName,
		Hierarchy:      ix.NormalizeHierarchy(r.Hierarchy),
		MotherSchoolID: BaseIdentifier(r.ParentIdentifier),
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
	}
}

// NormalizeHierarchy maps each raw value onto the canonical option it matches,
// top-down: a level is matched only among the options of its resolved parent.
// Values without a match are kept as entered, and so are their descendants.
// The result depends only on raw and the index, and normalizing it again
// returns it unchanged.
func (ix *Index) NormalizeHierarchy(raw models.Hierarchy) models.Hierarchy {
	out := raw

	n := ix.geo
	for _, v := range []*string{&out.Region, &out.Province, &out.Municipality, &out.Barangay} {
		n = match(n, v)
	}

	n = ix.divisions
	for _, v := range []*string{&out.Division, &out.District} {
		n = match(n, v)
	}

	match(ix.legislative, &out.LegislativeDistrict)
	return out
}

// match replaces *v with the canonical display of the matching child of n
// and returns that child. It returns nil, leaving *v untouched, when nothing
// matches.
func match(n *node, v *string) *node {
	c := n.lookup(*v)
	if c == nil {
		return nil
	}
	*v = c.display
	return c
}
