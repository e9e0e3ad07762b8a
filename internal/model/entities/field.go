package entities

import "time"

// FieldState is the engine's view of a configured field.
// AccumulatedGDD and GrowthStage are written only by the GDD tracker.
type FieldState struct {
	ID             string      `json:"id"`
	CropName       string      `json:"crop_name,omitempty"` // empty: no crop configured
	SowingDate     *time.Time  `json:"sowing_date,omitempty"`
	SoilTexture    SoilTexture `json:"soil_texture"`
	AccumulatedGDD float64     `json:"accumulated_gdd"`
	GrowthStage    GrowthStage `json:"growth_stage,omitempty"`
	LastUpdated    time.Time   `json:"last_updated"`
	Latitude       float64     `json:"latitude"`
	Longitude      float64     `json:"longitude"`
	FlowLpm        float64     `json:"flow_lpm,omitempty"` // emitter flow [L/min]
	AreaM2         float64     `json:"area_m2,omitempty"`   // irrigated area [m^2]
}

func (f FieldState) HasCrop() bool { return f.CropName != "" && f.SowingDate != nil }

// ApplicationRateMMh converts the emitter flow over the irrigated area into mm/h.
// 1 L/m2 = 1 mm.
func (f FieldState) ApplicationRateMMh() float64 {
	if f.FlowLpm <= 0 || f.AreaM2 <= 0 {
		return 0
	}
	return f.FlowLpm / f.AreaM2 * 60
}

// FieldPatch is a partial update of a FieldState. Unset members are left alone,
// null members clear the stored value.
type FieldPatch struct {
	CropName       Optional[string]      `json:"crop_name"`
	SowingDate     Optional[time.Time]   `json:"sowing_date"`
	SoilTexture    Optional[SoilTexture] `json:"soil_texture"`
	AccumulatedGDD Optional[float64]     `json:"accumulated_gdd"`
	GrowthStage    Optional[GrowthStage] `json:"growth_stage"`
	LastUpdated    Optional[time.Time]   `json:"last_updated"`
}

func (p FieldPatch) Empty() bool {
	return !p.CropName.Present() && !p.SowingDate.Present() && !p.SoilTexture.Present() &&
		!p.AccumulatedGDD.Present() && !p.GrowthStage.Present() && !p.LastUpdated.Present()
}

// Apply writes the present members of p onto f.
func (p FieldPatch) Apply(f *FieldState) {
	if v, ok := p.CropName.Get(); ok {
		f.CropName = v
	} else if p.CropName.IsNull() {
		f.CropName = ""
	}
	if v, ok := p.SowingDate.Get(); ok {
		d := Day(v)
		f.SowingDate = &d
	} else if p.SowingDate.IsNull() {
		f.SowingDate = nil
	}
	if v, ok := p.SoilTexture.Get(); ok {
		f.SoilTexture = v
	}
	if v, ok := p.AccumulatedGDD.Get(); ok {
		f.AccumulatedGDD = v
	} else if p.AccumulatedGDD.IsNull() {
		f.AccumulatedGDD = 0
	}
	if v, ok := p.GrowthStage.Get(); ok {
		f.GrowthStage = v
	} else if p.GrowthStage.IsNull() {
		f.GrowthStage = ""
	}
	if v, ok := p.LastUpdated.Get(); ok {
		f.LastUpdated = v
	}
}
