package domain

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

type AudienceAge string

const (
	AudienceTeens   AudienceAge = "Teens"
	Audience20To35  AudienceAge = "20-35"
	Audience35To50  AudienceAge = "35-50"
	Audience50Plus  AudienceAge = "50+"
	DefaultAudience             = Audience20To35
)

type AudienceLocation string

const (
	LocationMetro    AudienceLocation = "Metro"
	LocationNonMetro AudienceLocation = "Non-Metro"
	LocationBoth     AudienceLocation = "Both"
	DefaultLocation                   = LocationBoth
)

// GenerationMode is the number of ad concepts requested per run.
type GenerationMode int

const (
	ModeTwo         GenerationMode = 2
	ModeFour        GenerationMode = 4
	DefaultGenMode                 = ModeTwo
)

type AspectRatio string

const (
	Ratio1x1         AspectRatio = "1:1"
	Ratio4x5         AspectRatio = "4:5"
	Ratio16x9        AspectRatio = "16:9"
	RatioA4Portrait  AspectRatio = "A4 Portrait"
	RatioA3Landscape AspectRatio = "A3 Landscape"
	DefaultRatio                 = Ratio1x1
)

type VibeTheme string

const (
	ThemeEmpathy        VibeTheme = "Empathy / Humanity"
	ThemeLove           VibeTheme = "Love & Togetherness"
	ThemeAchievement    VibeTheme = "Achievement / Victory"
	ThemeTransformation VibeTheme = "Transformation / Redemption"
	ThemeNostalgic      VibeTheme = "Nostalgic / Sentimental"
	ThemeNatural        VibeTheme = "Natural / Organic"
	ThemeEmpowerment    VibeTheme = "Empowerment / Identity"
	ThemeMinimal        VibeTheme = "Minimal / Silence Power"
	ThemeHumor          VibeTheme = "Humor / Wit"
	ThemeJourney        VibeTheme = "Journey / Discovery"
)

var (
	audienceAges      = []AudienceAge{AudienceTeens, Audience20To35, Audience35To50, Audience50Plus}
	audienceLocations = []AudienceLocation{LocationMetro, LocationNonMetro, LocationBoth}
	generationModes   = []GenerationMode{ModeTwo, ModeFour}
	aspectRatios      = []AspectRatio{Ratio1x1, Ratio4x5, Ratio16x9, RatioA4Portrait, RatioA3Landscape}
	vibeThemes        = []VibeTheme{
		ThemeEmpathy, ThemeLove, ThemeAchievement, ThemeTransformation, ThemeNostalgic,
		ThemeNatural, ThemeEmpowerment, ThemeMinimal, ThemeHumor, ThemeJourney,
	}
)

func AudienceAges() []AudienceAge           { return append([]AudienceAge(nil), audienceAges...) }
func AudienceLocations() []AudienceLocation { return append([]AudienceLocation(nil), audienceLocations...) }
func GenerationModes() []GenerationMode     { return append([]GenerationMode(nil), generationModes...) }
func AspectRatios() []AspectRatio           { return append([]AspectRatio(nil), aspectRatios...) }
func VibeThemes() []VibeTheme               { return append([]VibeTheme(nil), vibeThemes...) }

func ParseAudienceAge(raw string) (AudienceAge, bool) {
	return matchOption(raw, audienceAges)
}

func ParseAudienceLocation(raw string) (AudienceLocation, bool) {
	return matchOption(raw, audienceLocations)
}

func ParseAspectRatio(raw string) (AspectRatio, bool) {
	return matchOption(raw, aspectRatios)
}

func ParseVibeTheme(raw string) (VibeTheme, bool) {
	return matchOption(raw, vibeThemes)
}

func ParseGenerationMode(raw string) (GenerationMode, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	for _, m := range generationModes {
		if int(m) == n {
			return m, true
		}
	}
	return 0, false
}

// matchOption compares case-insensitively so "a4 portrait" and "A4 Portrait" agree.
func matchOption[T ~string](raw string, options []T) (T, bool) {
	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(raw))
	if want == "" {
		return "", false
	}
	for _, opt := range options {
		if fold.String(string(opt)) == want {
			return opt, true
		}
	}
	return "", false
}
