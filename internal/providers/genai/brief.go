package genai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	genaisdk "google.golang.org/genai"

	"adprint/internal/domain"
)

const unsetTheme = "Not specified; choose the emotional direction that best fits the brand"

func buildIdeaBrief(spec domain.AdSpec) string {
	theme := string(spec.VibeTheme)
	if theme == "" {
		theme = unsetTheme
	}
	sb := &strings.Builder{}
	sb.WriteString("You are the world's best storyteller, copywriter, and art director rolled into one. ")
	sb.WriteString("Your task is to create concepts for high-conversion print ads that feel deeply human and emotionally intelligent.\n\n")
	sb.WriteString("**Brand & Product Information:**\n")
	fmt.Fprintf(sb, "- Brand Name: %s\n", spec.BrandName)
	fmt.Fprintf(sb, "- Target Audience Age: %s\n", spec.AudienceAge)
	fmt.Fprintf(sb, "- Target Audience Location: %s\n", spec.AudienceLocation)
	fmt.Fprintf(sb, "- Core Brand Features/Values: %s\n\n", spec.BrandFeatures)
	sb.WriteString("**Creative Mandate:**\n")
	fmt.Fprintf(sb, "- **Theme/Vibe:** %s\n", theme)
	fmt.Fprintf(sb, "- **Goal:** Generate %d unique ad concepts. For each concept, provide a headline, subtext, and a detailed image prompt.\n", spec.IdeaCount())
	sb.WriteString("- **Tone:** Cinematic, empathetic, ultra-human, soulful, and modern. Avoid robotic or generic marketing language. Focus on storytelling and emotional connection.\n")
	sb.WriteString("- **Output:** The response must be a JSON array of objects, strictly following the provided schema.\n\n")
	if spec.FeaturesImage.Empty() {
		sb.WriteString("Here is the product image for context.")
	} else {
		sb.WriteString("Here is the product image and a features image for context.")
	}
	return sb.String()
}

func ideaSchema() *genaisdk.Schema {
	return &genaisdk.Schema{
		Type: genaisdk.TypeArray,
		Items: &genaisdk.Schema{
			Type: genaisdk.TypeObject,
			Properties: map[string]*genaisdk.Schema{
				"headline": {
					Type:        genaisdk.TypeString,
					Description: "An emotionally powerful, human-centric headline for the print ad. It should be concise and psychologically resonant.",
				},
				"subtext": {
					Type:        genaisdk.TypeString,
					Description: "Subtle, persuasive copy that connects with the target audience on a behavioral level. It should feel authentic and ultra-personal.",
				},
				"imagePrompt": {
					Type:        genaisdk.TypeString,
					Description: "A detailed, cinematic, and emotionally rich prompt for an image generation model. Describe a scene with human elements, color psychology, and a mood that matches the theme. The visual should feel ultra-real and high-end.",
				},
			},
			Required: []string{"headline", "subtext", "imagePrompt"},
		},
	}
}

var errIncompleteIdea = errors.New("concept is missing headline, subtext or image prompt")

// parseIdeas decodes the model's JSON array. Every concept must carry all
// three fields after trimming.
func parseIdeas(raw string) ([]domain.GeneratedAdIdea, error) {
	ideas, err := parseModelPayload[[]domain.GeneratedAdIdea](raw)
	if err != nil {
		return nil, err
	}
	if len(ideas) == 0 {
		return nil, errors.New("no concepts in response")
	}
	for i := range ideas {
		ideas[i].Headline = strings.TrimSpace(ideas[i].Headline)
		ideas[i].Subtext = strings.TrimSpace(ideas[i].Subtext)
		ideas[i].ImagePrompt = strings.TrimSpace(ideas[i].ImagePrompt)
		if !ideas[i].Complete() {
			return nil, fmt.Errorf("concept %d: %w", i, errIncompleteIdea)
		}
	}
	return ideas, nil
}

func parseModelPayload[T any](raw string) (T, error) {
	var zero T
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return zero, errors.New("empty payload")
	}
	var decoded T
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return zero, err
	}
	return decoded, nil
}

func extractJSONFragment(raw string) string {
	text := trimCodeFence(strings.TrimSpace(raw))
	if text == "" {
		return ""
	}
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
