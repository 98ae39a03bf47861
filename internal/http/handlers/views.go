package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"adprint/internal/domain"
	"adprint/internal/studio"
)

//go:embed templates/*.html
var templateFS embed.FS

var loadingMessages = []string{
	"Designs that speak to the soul take time.",
	"Finding the story behind your brand...",
	"Composing light, color and emotion...",
	"Writing words that feel human...",
}

type views map[studio.State]*template.Template

func parseViews() (views, error) {
	pages := map[studio.State]string{
		studio.StateLanding:  "templates/landing.html",
		studio.StateCreating: "templates/creating.html",
		studio.StateLoading:  "templates/creating.html",
		studio.StateResults:  "templates/results.html",
	}
	out := make(views, len(pages))
	for state, page := range pages {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", page)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		out[state] = tmpl
	}
	return out, nil
}

type option struct {
	Value    string
	Selected bool
}

type formView struct {
	BrandName        string
	BrandFeatures    string
	HasProductImage  bool
	HasFeaturesImage bool
	Ages             []option
	Locations        []option
	Modes            []option
	Ratios           []option
	Themes           []option
}

type adView struct {
	Index       int
	Headline    string
	Subtext     string
	AspectRatio string
	PreviewURL  string
	DownloadURL string
}

type pageData struct {
	State           studio.State
	Badge           string
	Error           string
	SignupOpen      bool
	Form            formView
	Ads             []adView
	LoadingMessages []string
}

func newPageData(snap studio.Snapshot, formErr string) pageData {
	errMsg := snap.Error
	if formErr != "" {
		errMsg = formErr
	}
	data := pageData{
		State:           snap.State,
		Badge:           BadgeText(snap.Remaining),
		Error:           errMsg,
		SignupOpen:      snap.SignupOpen,
		Form:            newFormView(snap.Draft),
		LoadingMessages: loadingMessages,
	}
	for i, ad := range snap.Ads {
		data.Ads = append(data.Ads, adView{
			Index:       i,
			Headline:    ad.Headline,
			Subtext:     ad.Subtext,
			AspectRatio: string(ad.AspectRatio),
			PreviewURL:  fmt.Sprintf("/ads/%d/image?inline=1", i),
			DownloadURL: fmt.Sprintf("/ads/%d/image", i),
		})
	}
	return data
}

func newFormView(d domain.SpecForm) formView {
	return formView{
		BrandName:        d.BrandName,
		BrandFeatures:    d.BrandFeatures,
		HasProductImage:  !d.ProductImage.Empty(),
		HasFeaturesImage: !d.FeaturesImage.Empty(),
		Ages:             options(domain.AudienceAges(), d.AudienceAge),
		Locations:        options(domain.AudienceLocations(), d.AudienceLocation),
		Modes:            modeOptions(d.GenerationMode),
		Ratios:           ratioOptions(d.AspectRatios),
		Themes:           options(domain.VibeThemes(), d.VibeTheme),
	}
}

func options[T ~string](values []T, selected string) []option {
	out := make([]option, len(values))
	for i, v := range values {
		out[i] = option{Value: string(v), Selected: strings.EqualFold(string(v), strings.TrimSpace(selected))}
	}
	return out
}

func modeOptions(selected string) []option {
	modes := domain.GenerationModes()
	out := make([]option, len(modes))
	for i, m := range modes {
		v := strconv.Itoa(int(m))
		out[i] = option{Value: v, Selected: v == strings.TrimSpace(selected)}
	}
	return out
}

func ratioOptions(selected []string) []option {
	ratios := domain.AspectRatios()
	out := make([]option, len(ratios))
	for i, r := range ratios {
		out[i] = option{Value: string(r), Selected: slices.ContainsFunc(selected, func(s string) bool {
			return strings.EqualFold(strings.TrimSpace(s), string(r))
		})}
	}
	return out
}

// BadgeText renders the remaining free creations for the quota badge.
func BadgeText(remaining int) string {
	switch {
	case remaining <= 0:
		return "No free creations left"
	case remaining == 1:
		return "1 free creation left"
	default:
		return fmt.Sprintf("%d free creations left", remaining)
	}
}

func (a *App) render(w http.ResponseWriter, status int, snap studio.Snapshot, formErr string) {
	tmpl, ok := a.views[snap.State]
	if !ok {
		tmpl = a.views[studio.StateLanding]
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", newPageData(snap, formErr)); err != nil {
		a.Logger.Error().Err(err).Str("state", string(snap.State)).Msg("render view")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
