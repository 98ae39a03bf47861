package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	genaisdk "google.golang.org/genai"

	"adprint/internal/domain"
	"adprint/internal/infra"
)

const (
	DefaultTextModel  = "gemini-2.5-pro"
	DefaultImageModel = "gemini-2.5-flash-image"

	ideasFailedMessage = "The AI failed to generate valid ad concepts. Please try again."
	imageFailedMessage = "Image generation failed. No image data received."
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	TextModel  string
	ImageModel string
	HTTPClient *http.Client
	Logger     infra.Logger
}

// contentGenerator is the slice of the SDK the client calls. *genaisdk.Models
// satisfies it; tests swap in a fake.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genaisdk.Content, config *genaisdk.GenerateContentConfig) (*genaisdk.GenerateContentResponse, error)
}

// Client generates ad concepts and ad images through the Gemini API.
type Client struct {
	models     contentGenerator
	textModel  string
	imageModel string
	logger     infra.Logger
}

// NewClient connects the Gemini SDK with the given key. A nil HTTP client
// gets one with a two minute timeout.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("genai: api key is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	cfg := &genaisdk.ClientConfig{
		APIKey:     apiKey,
		Backend:    genaisdk.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg.HTTPOptions = genaisdk.HTTPOptions{BaseURL: base}
	}
	sdk, err := genaisdk.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("genai: create client: %w", err)
	}
	return newClient(sdk.Models, opts), nil
}

func newClient(models contentGenerator, opts Options) *Client {
	return &Client{
		models:     models,
		textModel:  firstNonEmpty(opts.TextModel, DefaultTextModel),
		imageModel: firstNonEmpty(opts.ImageModel, DefaultImageModel),
		logger:     opts.Logger,
	}
}

// GenerateIdeas asks the text model for spec.GenerationMode concepts. The
// count is not enforced here.
func (c *Client) GenerateIdeas(ctx context.Context, spec domain.AdSpec) ([]domain.GeneratedAdIdea, error) {
	parts := []*genaisdk.Part{genaisdk.NewPartFromBytes(spec.ProductImage.Data, imageMIME(spec.ProductImage))}
	if !spec.FeaturesImage.Empty() {
		parts = append(parts, genaisdk.NewPartFromBytes(spec.FeaturesImage.Data, imageMIME(*spec.FeaturesImage)))
	}
	parts = append(parts, genaisdk.NewPartFromText(buildIdeaBrief(spec)))

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.textModel,
		[]*genaisdk.Content{genaisdk.NewContentFromParts(parts, genaisdk.RoleUser)},
		&genaisdk.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   ideaSchema(),
		})
	if err != nil {
		return nil, &domain.GenerationError{Stage: domain.StageIdeas, Err: fmt.Errorf("generate content: %w", err)}
	}

	text := responseText(resp)
	ideas, err := parseIdeas(text)
	if err != nil {
		c.logger.Warn().Err(err).Str("model", c.textModel).Int("response_len", len(text)).Msg("unparseable ad concepts")
		return nil, &domain.GenerationError{Stage: domain.StageIdeas, Message: ideasFailedMessage, Err: err}
	}
	c.logger.Debug().
		Str("model", c.textModel).
		Int("ideas", len(ideas)).
		Dur("took", time.Since(start)).
		Msg("ad concepts generated")
	return ideas, nil
}

// GenerateImage renders one picture for prompt. The ratio is passed to the
// model in its nearest supported form.
func (c *Client) GenerateImage(ctx context.Context, prompt string, ratio domain.AspectRatio) (domain.Image, error) {
	cfg := &genaisdk.GenerateContentConfig{
		ResponseModalities: []string{string(genaisdk.ModalityImage)},
	}
	if ar := sdkAspectRatio(ratio); ar != "" {
		cfg.ImageConfig = &genaisdk.ImageConfig{AspectRatio: ar}
	}

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.imageModel,
		[]*genaisdk.Content{genaisdk.NewContentFromText(prompt, genaisdk.RoleUser)}, cfg)
	if err != nil {
		return domain.Image{}, &domain.GenerationError{Stage: domain.StageImage, Err: fmt.Errorf("generate content: %w", err)}
	}

	img, ok := firstInlineImage(resp)
	if !ok {
		return domain.Image{}, &domain.GenerationError{Stage: domain.StageImage, Message: imageFailedMessage}
	}
	c.logger.Debug().
		Str("model", c.imageModel).
		Str("aspect_ratio", string(ratio)).
		Int("bytes", len(img.Data)).
		Dur("took", time.Since(start)).
		Msg("ad image generated")
	return img, nil
}

func responseText(resp *genaisdk.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	return resp.Text()
}

func firstInlineImage(resp *genaisdk.GenerateContentResponse) (domain.Image, bool) {
	if resp == nil {
		return domain.Image{}, false
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			return domain.Image{
				Data:     part.InlineData.Data,
				MIMEType: firstNonEmpty(part.InlineData.MIMEType, "image/png"),
			}, true
		}
	}
	return domain.Image{}, false
}

// sdkAspectRatio maps print formats onto the ratios the image model accepts.
func sdkAspectRatio(ratio domain.AspectRatio) string {
	switch ratio {
	case domain.RatioA4Portrait:
		return "2:3"
	case domain.RatioA3Landscape:
		return "4:3"
	case domain.Ratio1x1, domain.Ratio4x5, domain.Ratio16x9:
		return string(ratio)
	default:
		return ""
	}
}

func imageMIME(img domain.Image) string {
	if img.MIMEType != "" {
		return img.MIMEType
	}
	return http.DetectContentType(img.Data)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
