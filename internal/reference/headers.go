package reference

import "strings"

// Field is a canonical reference column.
type Field string

const (
	FieldSchoolID            Field = "school_id"
	FieldSchoolName          Field = "school_name"
	FieldRegion              Field = "region"
	FieldProvince            Field = "province"
	FieldMunicipality        Field = "municipality"
	FieldBarangay            Field = "barangay"
	FieldDivision            Field = "division"
	FieldDistrict            Field = "district"
	FieldLegislativeDistrict Field = "legislative_district"
	FieldMotherSchoolID      Field = "mother_school_id"
	FieldLatitude            Field = "latitude"
	FieldLongitude           Field = "longitude"
)

// headerAlias lists the header spellings accepted for one field, as keys.
// Exact spellings are tried for every field before any substring rule.
type headerAlias struct {
	field    Field
	exact    []string
	contains []string
}

var headerAliases = []headerAlias{
	{field: FieldSchoolID, exact: []string{"schoolid", "beisschoolid", "schoolidnumber", "schoolidno"}},
	{field: FieldMotherSchoolID, exact: []string{"motherschoolid", "motherschool", "motherid"}, contains: []string{"motherschool"}},
	{field: FieldSchoolName, exact: []string{"schoolname", "name", "nameofschool"}, contains: []string{"schoolname"}},
	{field: FieldLegislativeDistrict, exact: []string{"legdistrict", "legislativedistrict"}, contains: []string{"legislative"}},
	{field: FieldRegion, exact: []string{"region"}, contains: []string{"region"}},
	{field: FieldProvince, exact: []string{"province"}, contains: []string{"province"}},
	{field: FieldMunicipality, exact: []string{"municipality", "city", "citymunicipality", "municipalitycity"}, contains: []string{"municipality", "city"}},
	{field: FieldBarangay, exact: []string{"barangay", "brgy"}, contains: []string{"barangay"}},
	{field: FieldDivision, exact: []string{"division", "schoolsdivision", "schooldivision", "divisionoffice"}, contains: []string{"division"}},
	// district has no substring rule: it would also claim the legislative column
	{field: FieldDistrict, exact: []string{"district", "schooldistrict", "schoolsdistrict"}},
	{field: FieldLatitude, exact: []string{"latitude", "lat"}, contains: []string{"latitude"}},
	{field: FieldLongitude, exact: []string{"longitude", "long", "lng", "lon"}, contains: []string{"longitude"}},
}

// HeaderMap maps each recognised field to the dataset header that carries it.
type HeaderMap map[Field]string

// ResolveHeaders matches dataset headers to fields. A header is claimed by
// at most one field and the first matching header wins.
func ResolveHeaders(headers []string) HeaderMap {
	keys := make([]string, len(headers))
	for i, h := range headers {
		keys[i] = Key(h)
	}

	m := HeaderMap{}
	claimed := make([]bool, len(headers))

	claim := func(field Field, match func(key string) bool) {
		if _, done := m[field]; done {
			return
		}
		for i, k := range keys {
			if claimed[i] || k == "" || !match(k) {
				continue
			}
			m[field] = headers[i]
			claimed[i] = true
			return
		}
	}

	for _, a := range headerAliases {
		for _, spelling := range a.exact {
			claim(a.field, func(k string) bool { return k == spelling })
		}
	}
	for _, a := range headerAliases {
		for _, part := range a.contains {
			claim(a.field, func(k string) bool { return strings.Contains(k, part) })
		}
	}
	return m
}
