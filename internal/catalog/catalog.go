// Package catalog maps Zillow source file names to the metric label their
// values are stored under after reshaping.
package catalog

import (
	"path"
	"sort"
)

// Fallback is the label used for files the catalog does not know.
const Fallback = "value"

// defaults are the Zillow metro-level metric files the pipeline ingests.
var defaults = map[string]string{
	"Metro_invt_fs_uc_sfrcondo_week.csv":                             "for_sale_inventory",
	"Metro_market_temp_index_uc_sfrcondo_month.csv":                  "market_heat_index",
	"Metro_mean_days_to_close_uc_sfrcondo_month.csv":                 "mean_days_to_close",
	"Metro_mean_doz_pending_uc_sfrcondo_sm_month.csv":                "mean_days_to_pending",
	"Metro_mean_listings_price_cut_amt_uc_sfrcondo_sm_month.csv":     "mean_price_cuts",
	"Metro_mean_sale_to_list_uc_sfrcondo_month.csv":                  "mean_sale_to_list",
	"Metro_median_days_to_close_uc_sfrcondo_month.csv":               "median_days_to_close",
	"Metro_median_sale_price_uc_sfrcondo_month.csv":                  "median_sale_price",
	"Metro_median_sale_to_list_uc_sfrcondo_month.csv":                "median_sale_to_list",
	"Metro_med_doz_pending_uc_sfrcondo_sm_month.csv":                 "median_days_pending",
	"Metro_med_listings_price_cut_amt_uc_sfrcondo_sm_month.csv":      "median_price_cuts",
	"Metro_mlp_uc_sfrcondo_month.csv":                                "median_list_price",
	"Metro_new_con_mean_sale_price_uc_sfrcondo_month.csv":            "new_construction_mean_sale_price",
	"Metro_new_con_median_sale_price_per_sqft_uc_sfrcondo_month.csv": "new_contstruction_median_sale_price",
	"Metro_new_con_median_sale_price_uc_sfrcondo_month.csv":          "new_construction_median_sale_price",
	"Metro_new_con_sales_count_raw_uc_sfrcondo_month.csv":            "new_construction_sales_count",
	"Metro_new_listings_uc_sfrcondo_month.csv":                       "new_listings",
	"Metro_new_pending_uc_sfrcondo_month.csv":                        "new_pending",
	"Metro_pct_sold_above_list_uc_sfrcondo_month.csv":                "pct_sold_above_list",
	"Metro_pct_sold_below_list_uc_sfrcondo_month.csv":                "pct_sold_below_list",
	"Metro_perc_listings_price_cut_uc_sfrcondo_sm_month.csv":         "perc_listings_price_cut",
	"Metro_sales_count_now_uc_sfrcondo_month.csv":                    "sales_count_now",
	"Metro_total_transaction_value_uc_sfrcondo_month.csv":            "total_transaction_value",
	"Metro_zhvf_growth_uc_sfrcondo_tier_0.33_0.67_sm_sa_month.csv":   "zhvf_growth",
	"Metro_zhvi_uc_sfrcondo_tier_0.33_0.67_sm_sa_month.csv":          "zhvi",
	"Metro_zordi_uc_sfrcondomfr_month.csv":                           "zordi",
	"Metro_zori_uc_sfrcondomfr_sm_sa_month.csv":                      "zori",
}

// Catalog is an immutable file-name → metric-label table.
// The zero value and nil are empty catalogs.
type Catalog struct {
	byFile map[string]string
}

// New builds a catalog from entries. The map is copied.
func New(entries map[string]string) *Catalog {
	c := &Catalog{byFile: make(map[string]string, len(entries))}
	for file, label := range entries {
		c.byFile[file] = label
	}
	return c
}

// Default returns the catalog of Zillow metro metrics.
func Default() *Catalog {
	return New(defaults)
}

// With returns a new catalog holding c's entries overlaid with overrides.
// Empty labels in overrides are ignored.
func (c *Catalog) With(overrides map[string]string) *Catalog {
	out := New(c.entries())
	for file, label := range overrides {
		if label == "" {
			continue
		}
		out.byFile[file] = label
	}
	return out
}

// Lookup returns the label registered for the base name of filename.
func (c *Catalog) Lookup(filename string) (string, bool) {
	if c == nil {
		return "", false
	}
	label, ok := c.byFile[path.Base(filename)]
	return label, ok
}

// Resolve returns the label for filename, or Fallback when there is none.
// filename may be a bare name or an object key; only its base name is
// matched, exactly.
func (c *Catalog) Resolve(filename string) string {
	if label, ok := c.Lookup(filename); ok {
		return label
	}
	return Fallback
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.byFile)
}

// Files returns the registered file names, sorted.
func (c *Catalog) Files() []string {
	files := make([]string, 0, c.Len())
	for file := range c.entries() {
		files = append(files, file)
	}
	sort.Strings(files)
	return files
}

func (c *Catalog) entries() map[string]string {
	if c == nil {
		return nil
	}
	return c.byFile
}
