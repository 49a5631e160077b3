package reference

import (
	"strconv"
	"strings"

	"github.com/insighted/schoolprofile/internal/models"
)

// Dataset is a reference table as read from its source: a header row and
// one header-to-value map per data row.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// NewDataset builds a dataset from raw records whose first record is the
// header row. Short records are padded with empty values.
func NewDataset(records [][]string) Dataset {
	if len(records) == 0 {
		return Dataset{}
	}
	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		if blankRecord(rec) {
			continue
		}
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return Dataset{Headers: headers, Rows: rows}
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ReferenceRows converts the dataset into reference rows using the header alias table.
// Headers are resolved once for the whole dataset.
func (d Dataset) ReferenceRows() ([]models.ReferenceRow, HeaderMap) {
	hm := ResolveHeaders(d.Headers)
	get := func(row map[string]string, f Field) string {
		h, ok := hm[f]
		if !ok {
			return ""
		}
		return strings.TrimSpace(row[h])
	}

	out := make([]models.ReferenceRow, 0, len(d.Rows))
	for _, row := range d.Rows {
		r := models.ReferenceRow{
			Identifier:  get(row, FieldSchoolID),
			DisplayName: get(row, FieldSchoolName),
			Hierarchy: models.Hierarchy{
				Region:              get(row, FieldRegion),
				Province:            get(row, FieldProvince),
				Municipality:        get(row, FieldMunicipality),
				Barangay:            get(row, FieldBarangay),
				Division:            get(row, FieldDivision),
				District:            get(row, FieldDistrict),
				LegislativeDistrict: get(row, FieldLegislativeDistrict),
			},
			ParentIdentifier: get(row, FieldMotherSchoolID),
			Latitude:         parseCoordinate(get(row, FieldLatitude)),
			Longitude:        parseCoordinate(get(row, FieldLongitude)),
		}
		out = append(out, r)
	}
	return out, hm
}

// parseCoordinate returns nil for empty or unparseable values.
func parseCoordinate(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
