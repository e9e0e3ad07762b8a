package entities

import "strings"

type SoilTexture string

const (
	SoilSandy     SoilTexture = "sandy"
	SoilSandyLoam SoilTexture = "sandy_loam"
	SoilLoam      SoilTexture = "loam"
	SoilClayLoam  SoilTexture = "clay_loam"
	SoilClay      SoilTexture = "clay"
)

// ParseSoilTexture accepts "Sandy Loam", "sandy-loam" and "SANDY_LOAM" alike.
func ParseSoilTexture(v string) SoilTexture {
	s := strings.ToLower(strings.TrimSpace(v))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return SoilTexture(s)
}

// SoilConstants are volumetric water contents (%) for one texture.
type SoilConstants struct {
	Texture       SoilTexture `yaml:"-" json:"texture"`
	FieldCapacity float64     `yaml:"field_capacity" json:"field_capacity"`
	WiltingPoint  float64     `yaml:"wilting_point" json:"wilting_point"`
	Saturation    float64     `yaml:"saturation" json:"saturation"`
}

func (s SoilConstants) Valid() bool {
	return s.WiltingPoint >= 0 &&
		s.WiltingPoint < s.FieldCapacity &&
		s.FieldCapacity < s.Saturation &&
		s.Saturation <= 100
}
