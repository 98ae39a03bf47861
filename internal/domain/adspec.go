package domain

import "slices"

// Image is an uploaded or generated picture kept in memory as raw bytes.
type Image struct {
	Data     []byte
	MIMEType string
}

func (i *Image) Clone() *Image {
	if i == nil {
		return nil
	}
	return &Image{Data: slices.Clone(i.Data), MIMEType: i.MIMEType}
}

func (i *Image) Empty() bool { return i == nil || len(i.Data) == 0 }

// AdSpec is the validated creative brief for one generation run. It is
// produced by SpecForm.Build and never mutated afterwards.
type AdSpec struct {
	ProductImage     Image
	FeaturesImage    *Image
	BrandName        string
	AudienceAge      AudienceAge
	AudienceLocation AudienceLocation
	BrandFeatures    string
	GenerationMode   GenerationMode
	AspectRatios     []AspectRatio
	VibeTheme        VibeTheme
}

// Clone returns a deep copy so a running generation never shares buffers with
// a form the user is still editing.
func (s AdSpec) Clone() AdSpec {
	out := s
	out.ProductImage = *s.ProductImage.Clone()
	out.FeaturesImage = s.FeaturesImage.Clone()
	out.AspectRatios = slices.Clone(s.AspectRatios)
	return out
}

func (s AdSpec) IdeaCount() int { return int(s.GenerationMode) }

// ExpectedAds is the number of (idea, ratio) pairs a successful run yields.
func (s AdSpec) ExpectedAds() int { return s.IdeaCount() * len(s.AspectRatios) }

// GeneratedAdIdea is one concept returned by the idea generator.
type GeneratedAdIdea struct {
	Headline    string `json:"headline"`
	Subtext     string `json:"subtext"`
	ImagePrompt string `json:"imagePrompt"`
}

func (g GeneratedAdIdea) Complete() bool {
	return g.Headline != "" && g.Subtext != "" && g.ImagePrompt != ""
}

// GeneratedAd pairs an idea with the image rendered for one aspect ratio.
type GeneratedAd struct {
	GeneratedAdIdea
	Image       Image
	AspectRatio AspectRatio
}
