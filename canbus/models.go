package canbus

import "fmt"

// ModelParams are the physical ranges a motor model's firmware uses when
// packing values into frames. Commands are clamped to these before encoding;
// the same ranges decode feedback back into physical units.
type ModelParams struct {
	PMin, PMax float64 // rad
	VMin, VMax float64 // rad/s
	TMin, TMax float64 // Nm
	KpMax      float64 // Nm/rad, min is 0
	KdMax      float64 // Nm/(rad/s), min is 0
}

var models = map[string]ModelParams{
	"AK80-6":  {-12.5, 12.5, -38.2, 38.2, -12, 12, 500, 5},
	"AK80-9":  {-12.5, 12.5, -25.64, 25.64, -18, 18, 500, 5},
	"AK70-10": {-12.5, 12.5, -50, 50, -25, 25, 500, 5},
	"AK10-9":  {-12.5, 12.5, -50, 50, -65, 65, 500, 5},
	"AK80-64": {-12.5, 12.5, -8, 8, -144, 144, 500, 5},
}

// LookupModel returns the frame-packing ranges for a motor model.
func LookupModel(name string) (ModelParams, error) {
	p, ok := models[name]
	if !ok {
		return ModelParams{}, fmt.Errorf("unknown motor model %q", name)
	}
	return p, nil
}
