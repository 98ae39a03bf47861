package domain

import "strings"

// SpecForm carries the raw values submitted from the creation studio form.
// Empty enum fields fall back to the form defaults.
type SpecForm struct {
	ProductImage     *Image
	FeaturesImage    *Image
	BrandName        string
	AudienceAge      string
	AudienceLocation string
	BrandFeatures    string
	GenerationMode   string
	AspectRatios     []string
	VibeTheme        string
}

// DefaultSpecForm returns the values the creation form starts with.
func DefaultSpecForm() SpecForm {
	return SpecForm{
		AudienceAge:      string(DefaultAudience),
		AudienceLocation: string(DefaultLocation),
		GenerationMode:   "2",
		AspectRatios:     []string{string(DefaultRatio)},
	}
}

// Build validates the form and returns an AdSpec that owns copies of the
// uploaded images. The error is always a *ValidationError.
func (f SpecForm) Build() (AdSpec, error) {
	var missing []string
	spec := AdSpec{
		BrandName:     strings.TrimSpace(f.BrandName),
		BrandFeatures: strings.TrimSpace(f.BrandFeatures),
	}

	if f.ProductImage.Empty() {
		missing = append(missing, "product image")
	} else {
		spec.ProductImage = *f.ProductImage.Clone()
	}
	if !f.FeaturesImage.Empty() {
		spec.FeaturesImage = f.FeaturesImage.Clone()
	}
	if spec.BrandName == "" {
		missing = append(missing, "brand name")
	}
	if spec.BrandFeatures == "" {
		missing = append(missing, "brand features")
	}

	age, ok := ParseAudienceAge(orDefault(f.AudienceAge, string(DefaultAudience)))
	if !ok {
		missing = append(missing, "audience age")
	}
	spec.AudienceAge = age

	loc, ok := ParseAudienceLocation(orDefault(f.AudienceLocation, string(DefaultLocation)))
	if !ok {
		missing = append(missing, "audience location")
	}
	spec.AudienceLocation = loc

	mode, ok := ParseGenerationMode(orDefault(f.GenerationMode, "2"))
	if !ok {
		missing = append(missing, "generation mode")
	}
	spec.GenerationMode = mode

	ratiosOK := true
	for _, raw := range f.AspectRatios {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		r, ok := ParseAspectRatio(raw)
		if !ok {
			ratiosOK = false
			continue
		}
		if !containsRatio(spec.AspectRatios, r) {
			spec.AspectRatios = append(spec.AspectRatios, r)
		}
	}
	if !ratiosOK || len(spec.AspectRatios) == 0 {
		missing = append(missing, "aspect ratio")
	}

	if theme := strings.TrimSpace(f.VibeTheme); theme != "" {
		v, ok := ParseVibeTheme(theme)
		if !ok {
			missing = append(missing, "vibe theme")
		}
		spec.VibeTheme = v
	}

	if len(missing) > 0 {
		return AdSpec{}, &ValidationError{Fields: missing}
	}
	return spec, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func containsRatio(list []AspectRatio, r AspectRatio) bool {
	for _, x := range list {
		if x == r {
			return true
		}
	}
	return false
}
