package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

//go:embed catalog.yaml
var embedded []byte

// document is the on-disk layout of a catalog file.
type document struct {
	Seasons []SeasonWindow                    `yaml:"seasons"`
	Soils   map[string]entities.SoilConstants `yaml:"soils"`
	Crops   []cropEntry                       `yaml:"crops"`
}

// cropEntry detects entries written for the retired total-GDD schema.
type cropEntry struct {
	entities.CropParameters `yaml:",inline"`
	TotalGDD                *float64 `yaml:"total_gdd"`
}

// Default parses the embedded catalog. It panics on error because the file
// ships with the binary.
func Default() *Catalog {
	c, err := Parse(embedded)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded catalog invalid: %v", err))
	}
	return c
}

// Load reads a catalog file, or the embedded catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Parse(embedded)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a catalog document. Unknown keys are rejected.
func Parse(raw []byte) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	c := &Catalog{
		crops:   make(map[string]entities.CropParameters, len(doc.Crops)),
		soils:   make(map[entities.SoilTexture]entities.SoilConstants, len(doc.Soils)),
		seasons: doc.Seasons,
	}
	var errs []error

	for _, w := range doc.Seasons {
		if w.Name == "" || w.Name == entities.SeasonPerennial {
			errs = append(errs, fmt.Errorf("season %q: invalid name", w.Name))
		}
		if w.StartMonth < 1 || w.StartMonth > 12 || w.StartDay < 1 || w.StartDay > 31 || w.LengthDays <= 0 {
			errs = append(errs, fmt.Errorf("season %q: invalid window", w.Name))
		}
	}
	if len(doc.Seasons) == 0 {
		errs = append(errs, errors.New("no seasons defined"))
	}

	for name, s := range doc.Soils {
		t := entities.ParseSoilTexture(name)
		if AdjacentSoils(t) == nil {
			errs = append(errs, fmt.Errorf("soil %q: unknown texture", name))
			continue
		}
		s.Texture = t
		if !s.Valid() {
			errs = append(errs, fmt.Errorf("soil %q: need wilting point < field capacity < saturation", name))
		}
		c.soils[t] = s
	}

	for i, e := range doc.Crops {
		p := e.CropParameters
		p.Name = normalizeName(p.Name)
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("crop #%d: missing name", i))
			continue
		}
		if e.TotalGDD != nil {
			errs = append(errs, fmt.Errorf("crop %q: total_gdd is not supported, use gdd_stages", p.Name))
			continue
		}
		if _, dup := c.crops[p.Name]; dup {
			errs = append(errs, fmt.Errorf("crop %q: duplicate entry", p.Name))
			continue
		}
		p.Season = entities.ParseSeason(string(p.Season))
		for j := range p.PreferredSoils {
			p.PreferredSoils[j] = entities.ParseSoilTexture(string(p.PreferredSoils[j]))
		}
		if err := c.validateCrop(p); err != nil {
			errs = append(errs, err)
			continue
		}
		c.crops[p.Name] = p
		c.names = append(c.names, p.Name)
	}
	sort.Strings(c.names)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validateCrop(p entities.CropParameters) error {
	var errs []error
	if !c.knownSeason(p.Season) {
		errs = append(errs, fmt.Errorf("unknown season %q", p.Season))
	}
	if !p.Stages.Increasing() {
		errs = append(errs, errors.New("gdd_stages must be strictly increasing"))
	}
	if !p.VWC.Ordered() || p.VWC.Min < 0 || p.VWC.Max > 100 {
		errs = append(errs, errors.New("vwc needs 0 <= min <= optimal <= max <= 100"))
	}
	if !p.SoilTemp.Ordered() {
		errs = append(errs, errors.New("soil_temp needs min <= optimal <= max"))
	}
	if p.MAD <= 0 || p.MAD >= 1 {
		errs = append(errs, fmt.Errorf("mad %.2f outside (0, 1)", p.MAD))
	}
	if p.RootDepthCm <= 0 {
		errs = append(errs, errors.New("root_depth_cm must be positive"))
	}
	if p.UpperTemp != 0 && p.UpperTemp <= p.BaseTemp {
		errs = append(errs, errors.New("upper_temp must exceed base_temp"))
	}
	for _, s := range p.PreferredSoils {
		if _, ok := c.soils[s]; !ok {
			errs = append(errs, fmt.Errorf("preferred soil %q not in soil table", s))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("crop %q: %w", p.Name, errors.Join(errs...))
}
