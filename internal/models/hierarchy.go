package models

// Level identifies one rung of the location chain or the division chain.
type Level string

const (
	LevelRegion              Level = "region"
	LevelProvince            Level = "province"
	LevelMunicipality        Level = "municipality"
	LevelBarangay            Level = "barangay"
	LevelDivision            Level = "division"
	LevelDistrict            Level = "district"
	LevelLegislativeDistrict Level = "legislative_district"
)

// Levels lists every supported level in cascade order.
var Levels = []Level{
	LevelRegion,
	LevelProvince,
	LevelMunicipality,
	LevelBarangay,
	LevelDivision,
	LevelDistrict,
	LevelLegislativeDistrict,
}

// ParseLevel returns the Level named by s and whether it is known.
func ParseLevel(s string) (Level, bool) {
	for _, l := range Levels {
		if string(l) == s {
			return l, true
		}
	}
	return "", false
}

// Hierarchy is a school's position in both administrative chains.
// Region > Province > Municipality > Barangay is the geographic chain;
// Division > District is the education-office chain. LegislativeDistrict
// stands alone.
type Hierarchy struct {
	Region              string `json:"region"`
	Province            string `json:"province"`
	Municipality        string `json:"municipality"`
	Barangay            string `json:"barangay"`
	Division            string `json:"division"`
	District            string `json:"district"`
	LegislativeDistrict string `json:"legislative_district"`
}

// ReferenceRow is one school record from the reference dataset.
type ReferenceRow struct {
	Identifier       string
	DisplayName      string
	Hierarchy        Hierarchy
	ParentIdentifier string
	Latitude         *float64
	Longitude        *float64
}

// ResolvedCandidate is a reference row projected onto the profile form,
// with its hierarchy normalized against the reference option lists.
type ResolvedCandidate struct {
	SchoolID       string    `json:"school_id"`
	SchoolName     string    `json:"school_name"`
	Hierarchy      Hierarchy `json:"hierarchy"`
	MotherSchoolID string    `json:"mother_school_id,omitempty"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
}
