package config

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Region maps a display name to the geography encodings of both upstream APIs.
// TrendsGeo is an ISO country code; ForecastGeoIDs are numeric forecast region
// ids. The two schemes are not interchangeable.
type Region struct {
	Name           string `json:"name"`
	TrendsGeo      string `json:"trends_geo"`
	ForecastGeoIDs []int  `json:"forecast_geo_ids"`
}

type Language struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// Catalog is an immutable display-name lookup built once at startup.
type Catalog struct {
	regions   []Region
	languages []Language
	byRegion  map[string]int
	byLang    map[string]int
}

func NewCatalog(regions []RegionConfig, languages []LanguageConfig) (*Catalog, error) {
	c := &Catalog{
		regions:   make([]Region, 0, len(regions)),
		languages: make([]Language, 0, len(languages)),
		byRegion:  make(map[string]int, len(regions)),
		byLang:    make(map[string]int, len(languages)),
	}

	for _, r := range regions {
		key := lookupKey(r.Name)
		if _, dup := c.byRegion[key]; dup {
			return nil, fmt.Errorf("duplicate region %q", r.Name)
		}
		geoIDs := make([]int, len(r.ForecastGeoIDs))
		copy(geoIDs, r.ForecastGeoIDs)

		c.byRegion[key] = len(c.regions)
		c.regions = append(c.regions, Region{
			Name:           r.Name,
			TrendsGeo:      strings.ToUpper(r.TrendsGeo),
			ForecastGeoIDs: geoIDs,
		})
	}

	for _, l := range languages {
		tag, err := language.Parse(l.Code)
		if err != nil {
			return nil, fmt.Errorf("language %q has invalid code %q: %w", l.Name, l.Code, err)
		}
		key := lookupKey(l.Name)
		if _, dup := c.byLang[key]; dup {
			return nil, fmt.Errorf("duplicate language %q", l.Name)
		}
		c.byLang[key] = len(c.languages)
		c.languages = append(c.languages, Language{Name: l.Name, Code: tag.String()})
	}

	return c, nil
}

// Region resolves a display name case-insensitively.
func (c *Catalog) Region(name string) (Region, bool) {
	i, ok := c.byRegion[lookupKey(name)]
	if !ok {
		return Region{}, false
	}
	r := c.regions[i]
	r.ForecastGeoIDs = append([]int(nil), r.ForecastGeoIDs...)
	return r, true
}

func (c *Catalog) Language(name string) (Language, bool) {
	i, ok := c.byLang[lookupKey(name)]
	if !ok {
		return Language{}, false
	}
	return c.languages[i], true
}

// Regions returns the table in configuration order.
func (c *Catalog) Regions() []Region {
	out := make([]Region, len(c.regions))
	for i, r := range c.regions {
		r.ForecastGeoIDs = append([]int(nil), r.ForecastGeoIDs...)
		out[i] = r
	}
	return out
}

func (c *Catalog) Languages() []Language {
	return append([]Language(nil), c.languages...)
}

func lookupKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
