package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insighted/schoolprofile/internal/models"
)

func TestResolveByID_StripsSuffix(t *testing.T) {
	ix := mustBuild(t, sampleRows())

	c, ok := ix.ResolveByID("100001.0")
	require.True(t, ok)
	assert.Equal(t, "100001", c.SchoolID)
	assert.Equal(t, "Example ES", c.SchoolName)
	assert.Equal(t, "Region I", c.Hierarchy.Region)
	assert.Equal(t, "Ilocos Norte", c.Hierarchy.Province)
	require.NotNil(t, c.Latitude)
	assert.InDelta(t, 18.19, *c.Latitude, 1e-9)

	// row identifiers are stripped the same way
	c, ok = ix.ResolveByID(" 100001 ")
	require.True(t, ok)
	assert.Equal(t, "100001", c.SchoolID)
}

func TestResolveByID_NotFound(t *testing.T) {
	ix := mustBuild(t, sampleRows())

	_, ok := ix.ResolveByID("999999")
	assert.False(t, ok)

	_, ok = ix.ResolveByID("   ")
	assert.False(t, ok)
}

func TestResolveByID_NormalizesCandidateHierarchy(t *testing.T) {
	ix := mustBuild(t, sampleRows())

	// row 100002 spells its region "REGION I"; the candidate uses the canonical option
	c, ok := ix.ResolveByID("100002")
	require.True(t, ok)
	assert.Equal(t, "Region I", c.Hierarchy.Region)
}

func TestResolveByID_MotherSchool(t *testing.T) {
	ix := mustBuild(t, sampleRows())

	c, ok := ix.ResolveByID("100003")
	require.True(t, ok)
	assert.Equal(t, "100001", c.MotherSchoolID)
}

func TestResolveByName(t *testing.T) {
	ix := mustBuild(t, sampleRows())

	t.Run("case-insensitive exact match", func(t *testing.T) {
		c, ok := ix.ResolveByName("  vigan   nhs ")
		require.True(t, ok)
		assert.Equal(t, "100003", c.SchoolID)
	})

	t.Run("first row wins on duplicate names", func(t *testing.T) {
		c, ok := ix.ResolveByName("EXAMPLE ES")
		require.True(t, ok)
		assert.Equal(t, "100001", c.SchoolID)
	})

	t.Run("partial names do not match", func(t *testing.T) {
		_, ok := ix.ResolveByName("Example")
		assert.False(t, ok)
	})

	t.Run("empty name", func(t *testing.T) {
		_, ok := ix.ResolveByName("")
		assert.False(t, ok)
	})
}

func TestNormalizeHierarchy(t *testing.T) {
	ix := mustBuild(t, sampleRows())

	tests := []struct {
		name string
		raw  models.Hierarchy
		want models.Hierarchy
	}{
		{
			name: "canonicalizes every level",
			raw: models.Hierarchy{
				Region: "region i", Province: "ILOCOS NORTE", Municipality: "laoag city", Barangay: "barangay-1",
				Division: "ilocos norte", District: "LAOAG I", LegislativeDistrict: "1st district",
			},
			want: models.Hierarchy{
				Region: "Region I", Province: "Ilocos Norte", Municipality: "Laoag City", Barangay: "Barangay 1",
				Division: "Ilocos Norte", District: "Laoag I", LegislativeDistrict: "1st District",
			},
		},
		{
			name: "unmatched values pass through unchanged",
			raw:  models.Hierarchy{Region: "Region I", Province: "Atlantis", Municipality: "laoag city"},
			// municipality is only matched under a resolved province
			want: models.Hierarchy{Region: "Region I", Province: "Atlantis", Municipality: "laoag city"},
		},
		{
			name: "child matched only under its own parent",
			raw:  models.Hierarchy{Region: "Region III", Province: "ilocos norte"},
			want: models.Hierarchy{Region: "Region III", Province: "ilocos norte"},
		},
		{
			name: "district matched only under its division",
			raw:  models.Hierarchy{Division: "vigan city", District: "laoag i"},
			want: models.Hierarchy{Division: "Vigan City", District: "laoag i"},
		},
		{
			name: "empty stays empty",
			raw:  models.Hierarchy{},
			want: models.Hierarchy{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ix.NormalizeHierarchy(tt.raw)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeHierarchy_DeterministicAndIdempotent(t *testing.T) {
	ix := mustBuild(t, sampleRows())

	inputs := []models.Hierarchy{
		{Region: "REGION I", Province: "ilocos sur", Municipality: "VIGAN CITY", Barangay: "ayusan norte"},
		{Region: "Region 1", Province: "Ilocos Norte"},
		{Region: "region iii", Province: "pampanga", Municipality: "nowhere", Barangay: "balibago"},
		{Division: "ANGELES CITY", District: "angeles north", LegislativeDistrict: "9th District"},
	}

	for _, raw := range inputs {
		once := ix.NormalizeHierarchy(raw)
		assert.Equal(t, once, ix.NormalizeHierarchy(raw), "deterministic for %+v", raw)
		assert.Equal(t, once, ix.NormalizeHierarchy(once), "idempotent for %+v", raw)
	}
}
