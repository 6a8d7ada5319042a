package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalog_Resolve(t *testing.T) {
	c := Default()

	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"exact name", "Metro_zhvi_uc_sfrcondo_tier_0.33_0.67_sm_sa_month.csv", "zhvi"},
		{"object key", "raw/2024/Metro_zori_uc_sfrcondomfr_sm_sa_month.csv", "zori"},
		{"weekly file", "Metro_invt_fs_uc_sfrcondo_week.csv", "for_sale_inventory"},
		{"unknown file", "County_zhvi.csv", Fallback},
		{"case differs", "metro_zhvi_uc_sfrcondo_tier_0.33_0.67_sm_sa_month.csv", Fallback},
		{"empty", "", Fallback},
		{"directory", "processed-data/", Fallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Resolve(tt.filename))
		})
	}
}

func TestCatalog_Default(t *testing.T) {
	c := Default()
	assert.Equal(t, 27, c.Len())

	files := c.Files()
	assert.Len(t, files, 27)
	assert.IsIncreasing(t, files)
}

func TestCatalog_NilIsEmpty(t *testing.T) {
	var c *Catalog
	assert.Equal(t, Fallback, c.Resolve("Metro_zori_uc_sfrcondomfr_sm_sa_month.csv"))
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Files())
}

func TestCatalog_With(t *testing.T) {
	base := New(map[string]string{"a.csv": "alpha", "b.csv": "beta"})

	c := base.With(map[string]string{"b.csv": "bravo", "c.csv": "charlie", "a.csv": ""})

	assert.Equal(t, "alpha", c.Resolve("a.csv"))
	assert.Equal(t, "bravo", c.Resolve("b.csv"))
	assert.Equal(t, "charlie", c.Resolve("c.csv"))

	// The base catalog is unchanged.
	assert.Equal(t, "beta", base.Resolve("b.csv"))
	assert.Equal(t, Fallback, base.Resolve("c.csv"))
}

func TestNew_CopiesEntries(t *testing.T) {
	entries := map[string]string{"a.csv": "alpha"}
	c := New(entries)
	entries["a.csv"] = "changed"

	assert.Equal(t, "alpha", c.Resolve("a.csv"))
}
