package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insighted/schoolprofile/internal/models"
)

func fptr(v float64) *float64 { return &v }

// sampleRows is a small dataset spanning two regions and two divisions.
func sampleRows() []models.ReferenceRow {
	return []models.ReferenceRow{
		{
			Identifier:  "100001.0",
			DisplayName: "Example ES",
			Hierarchy: models.Hierarchy{
				Region: "Region I", Province: "Ilocos Norte", Municipality: "Laoag City", Barangay: "Barangay 1",
				Division: "Ilocos Norte", District: "Laoag I", LegislativeDistrict: "1st District",
			},
			Latitude:  fptr(18.19),
			Longitude: fptr(120.59),
		},
		{
			Identifier:  "100002",
			DisplayName: "Batac Central ES",
			Hierarchy: models.Hierarchy{
				Region: "REGION I", Province: "Ilocos Norte", Municipality: "Batac City", Barangay: "Ablan",
				Division: "Ilocos Norte", District: "Batac North", LegislativeDistrict: "2nd District",
			},
		},
		{
			Identifier:       "100003",
			DisplayName:      "Vigan NHS",
			ParentIdentifier: "100001",
			Hierarchy: models.Hierarchy{
				Region: "Region I", Province: "Ilocos Sur", Municipality: "Vigan City", Barangay: "Ayusan Norte",
				Division: "Vigan City", District: "Vigan", LegislativeDistrict: "1st District",
			},
		},
		{
			Identifier:  "300001",
			DisplayName: "Example ES",
			Hierarchy: models.Hierarchy{
				Region: "Region III", Province: "Pampanga", Municipality: "Angeles City", Barangay: "Balibago",
				Division: "Angeles City", District: "Angeles North", LegislativeDistrict: "1st District",
			},
		},
	}
}

func mustBuild(t *testing.T, rows []models.ReferenceRow) *Index {
	t.Helper()
	ix, err := Build(rows)
	require.NoError(t, err)
	return ix
}

func TestBuild_EmptyRows(t *testing.T) {
	ix, err := Build(nil)
	assert.Nil(t, ix)
	assert.ErrorIs(t, err, ErrEmptyReference)
}

func TestOptionsFor_Scenario(t *testing.T) {
	ix := mustBuild(t, []models.ReferenceRow{{
		Identifier:  "100001",
		DisplayName: "Example ES",
		Hierarchy:   models.Hierarchy{Region: "Region I", Province: "Ilocos Norte"},
	}})

	assert.Equal(t, []string{"Ilocos Norte"}, ix.OptionsFor(models.LevelProvince, models.Hierarchy{Region: "Region I"}))
}

func TestOptionsFor_Levels(t *testing.T) {
	ix := mustBuild(t, sampleRows())

	tests := []struct {
		name    string
		level   models.Level
		parents models.Hierarchy
		want    []string
	}{
		{
			name:  "regions dedupe by key and keep first casing",
			level: models.LevelRegion,
			want:  []string{"Region I", "Region III"},
		},
		{
			name:    "provinces under region",
			level:   models.LevelProvince,
			parents: models.Hierarchy{Region: "Region I"},
			want:    []string{"Ilocos Norte", "Ilocos Sur"},
		},
		{
			name:    "parent match ignores case and punctuation",
			level:   models.LevelProvince,
			parents: models.Hierarchy{Region: "region-i"},
			want:    []string{"Ilocos Norte", "Ilocos Sur"},
		},
		{
			name:    "municipalities under province",
			level:   models.LevelMunicipality,
			parents: models.Hierarchy{Region: "Region I", Province: "Ilocos Norte"},
			want:    []string{"Batac City", "Laoag City"},
		},
		{
			name:    "barangays under municipality",
			level:   models.LevelBarangay,
			parents: models.Hierarchy{Region: "Region I", Province: "Ilocos Norte", Municipality: "Laoag City"},
			want:    []string{"Barangay 1"},
		},
		{
			name:    "unknown parent yields empty set",
			level:   models.LevelProvince,
			parents: models.Hierarchy{Region: "Region XX"},
			want:    []string{},
		},
		{
			name:    "province under the wrong region yields empty set",
			level:   models.LevelMunicipality,
			parents: models.Hierarchy{Region: "Region III", Province: "Ilocos Norte"},
			want:    []string{},
		},
		{
			name:  "divisions",
			level: models.LevelDivision,
			want:  []string{"Angeles City", "Ilocos Norte", "Vigan City"},
		},
		{
			name:    "districts under division",
			level:   models.LevelDistrict,
			parents: models.Hierarchy{Division: "Ilocos Norte"},
			want:    []string{"Batac North", "Laoag I"},
		},
		{
			name:  "legislative districts are flat",
			level: models.LevelLegislativeDistrict,
			want:  []string{"1st District", "2nd District"},
		},
		{
			name:  "unknown level",
			level: models.Level("county"),
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ix.OptionsFor(tt.level, tt.parents))
		})
	}
}

func TestOptionsFor_NoOrphans(t *testing.T) {
	rows := sampleRows()
	ix := mustBuild(t, rows)

	// every option under a chosen parent chain appears in a row with that chain
	for _, region := range ix.OptionsFor(models.LevelRegion, models.Hierarchy{}) {
		for _, province := range ix.OptionsFor(models.LevelProvince, models.Hierarchy{Region: region}) {
			found := false
			for _, r := range rows {
				if Key(r.Hierarchy.Region) == Key(region) && Key(r.Hierarchy.Province) == Key(province) {
					found = true
				}
			}
			assert.True(t, found, "province %q has no row under region %q", province, region)

			parents := models.Hierarchy{Region: region, Province: province}
			for _, muni := range ix.OptionsFor(models.LevelMunicipality, parents) {
				found := false
				for _, r := range rows {
					if Key(r.Hierarchy.Region) == Key(region) && Key(r.Hierarchy.Province) == Key(province) &&
						Key(r.Hierarchy.Municipality) == Key(muni) {
						found = true
					}
				}
				assert.True(t, found, "municipality %q has no row under %q/%q", muni, region, province)
			}
		}
	}
}

func TestDistrictsOf_IndependentOfGeography(t *testing.T) {
	ix := mustBuild(t, sampleRows())

	// "Ilocos Norte" is both a province and a division; the two must not mix
	assert.Equal(t, []string{"Batac North", "Laoag I"}, ix.DistrictsOf("Ilocos Norte"))
	assert.Equal(t, []string{}, ix.DistrictsOf("Region I"))
}

func TestOptionsFor_ReturnsCopy(t *testing.T) {
	ix := mustBuild(t, sampleRows())
	opts := ix.OptionsFor(models.LevelRegion, models.Hierarchy{})
	opts[0] = "mutated"
	assert.Equal(t, "Region I", ix.OptionsFor(models.LevelRegion, models.Hierarchy{})[0])
}

func TestBuild_SkipsBlankLevels(t *testing.T) {
	ix := mustBuild(t, []models.ReferenceRow{
		{Identifier: "1", Hierarchy: models.Hierarchy{Region: "Region I", Municipality: "Orphan Town"}},
	})
	assert.Equal(t, []string{"Region I"}, ix.OptionsFor(models.LevelRegion, models.Hierarchy{}))
	assert.Equal(t, []string{}, ix.OptionsFor(models.LevelProvince, models.Hierarchy{Region: "Region I"}))
}

func TestKey(t *testing.T) {
	tests := map[string]string{
		"Region I":        "regioni",
		"  REGION-I ":     "regioni",
		"Parañaque City":  "paranaquecity",
		"Las Piñas":       "laspinas",
		"Sto. Niño (Pob)": "stoninopob",
		"":                "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Key(in), "Key(%q)", in)
	}
}

func TestBaseIdentifier(t *testing.T) {
	assert.Equal(t, "100001", BaseIdentifier(" 100001.0 "))
	assert.Equal(t, "100001", BaseIdentifier("100001"))
	assert.Equal(t, "", BaseIdentifier(".5"))
}
