package genai

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"adprint/internal/domain"
	"adprint/internal/infra"
)

// Synthetic produces deterministic concepts and placeholder PNGs so the
// studio runs end-to-end without an API key.
type Synthetic struct {
	logger infra.Logger
}

func NewSynthetic(logger infra.Logger) *Synthetic {
	return &Synthetic{logger: logger}
}

var syntheticAngles = []struct{ headline, subtext, scene string }{
	{"made for the moments that matter", "%s turns an ordinary day into one you will remember.", "a quiet morning kitchen lit by warm window light"},
	{"the little things, done right", "Crafted with care for people who notice. That is %s.", "hands gently unwrapping a gift on a wooden table"},
	{"come home to yourself", "%s keeps you close to what you love.", "a family laughing together at golden hour on a porch"},
	{"quietly extraordinary", "%s does the work so you can enjoy the view.", "a lone figure on a city rooftop at dusk with soft neon reflections"},
	{"every day, a fresh start", "Begin again with %s at your side.", "sunrise over a misty field with a bicycle leaning on a fence"},
	{"proof is in the details", "Look closer. %s was built for people like you.", "macro shot of textured materials under studio light"},
}

func (s *Synthetic) GenerateIdeas(ctx context.Context, spec domain.AdSpec) ([]domain.GeneratedAdIdea, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seed := deterministicSeed(spec.BrandName, spec.BrandFeatures, spec.VibeTheme, spec.AudienceAge)
	offset := int(seed[0]) % len(syntheticAngles)
	title := cases.Title(language.English)
	mood := strings.ToLower(firstNonEmpty(string(spec.VibeTheme), "warm and human"))

	ideas := make([]domain.GeneratedAdIdea, 0, spec.IdeaCount())
	for i := 0; i < spec.IdeaCount(); i++ {
		angle := syntheticAngles[(offset+i)%len(syntheticAngles)]
		ideas = append(ideas, domain.GeneratedAdIdea{
			Headline: title.String(angle.headline),
			Subtext:  fmt.Sprintf(angle.subtext, spec.BrandName),
			ImagePrompt: fmt.Sprintf("Cinematic print ad photograph for %s: %s, mood %s, audience aged %s, featuring the product prominently",
				spec.BrandName, angle.scene, mood, spec.AudienceAge),
		})
	}
	s.logger.Debug().Str("brand", spec.BrandName).Int("ideas", len(ideas)).Msg("synthetic ad concepts")
	return ideas, nil
}

func (s *Synthetic) GenerateImage(ctx context.Context, prompt string, ratio domain.AspectRatio) (domain.Image, error) {
	if err := ctx.Err(); err != nil {
		return domain.Image{}, err
	}
	width, height := canvasSize(ratio)
	data, err := renderSyntheticImage(width, height, deterministicSeed(prompt, ratio))
	if err != nil {
		return domain.Image{}, &domain.GenerationError{Stage: domain.StageImage, Err: err}
	}
	return domain.Image{Data: data, MIMEType: "image/png"}, nil
}

// canvasSize returns small placeholder dimensions that keep the ratio.
func canvasSize(ratio domain.AspectRatio) (int, int) {
	switch ratio {
	case domain.Ratio16x9:
		return 512, 288
	case domain.Ratio4x5:
		return 384, 480
	case domain.RatioA4Portrait:
		return 362, 512
	case domain.RatioA3Landscape:
		return 512, 362
	case domain.Ratio1x1, "":
		return 480, 480
	}
	parts := strings.Split(string(ratio), ":")
	if len(parts) == 2 {
		a, errA := strconv.Atoi(strings.TrimSpace(parts[0]))
		b, errB := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errA == nil && errB == nil && a > 0 && b > 0 {
			return 480, 480 * b / a
		}
	}
	return 480, 480
}

func renderSyntheticImage(width, height int, seed string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	base := colorFromSeed(seed, 0)
	accent := colorFromSeed(seed, 1)
	draw.Draw(img, img.Bounds(), &image.Uniform{base}, image.Point{}, draw.Src)

	band := max(16, height/10)
	for y := 0; y < height; y += band * 2 {
		stripe := image.Rect(0, y, width, min(height, y+band))
		draw.Draw(img, stripe, &image.Uniform{accent}, image.Point{}, draw.Over)
	}

	// a centered frame stands in for the product shot
	frame := colorFromSeed(seed, 2)
	inset := min(width, height) / 5
	inner := image.Rect(inset, inset, width-inset, height-inset)
	draw.Draw(img, inner, &image.Uniform{frame}, image.Point{}, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func colorFromSeed(seed string, shift int) color.RGBA {
	if len(seed) < 6 {
		seed = "000000"
	}
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	b, err := hex.DecodeString(segment)
	if err != nil {
		return color.RGBA{A: 255}
	}
	return color.RGBA{R: b[0], G: b[1], B: b[2], A: 255}
}

func deterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, part := range parts {
		fmt.Fprintf(hasher, "%v|", part)
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}
