package handlers

import (
	"bytes"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"adprint/internal/domain"
	"adprint/internal/studio"
	"adprint/pkg/zip"
)

// DownloadName derives the saved filename from an ad headline:
// lowercased, whitespace runs collapsed to underscores, ".png" appended.
func DownloadName(headline string) string {
	name := strings.Join(strings.Fields(strings.ToLower(headline)), "_")
	if name == "" {
		name = "ad"
	}
	return name + ".png"
}

// AdImage serves one rendered ad, as an attachment unless ?inline=1.
func (a *App) AdImage(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "invalid_index", "ad index must be a number")
		return
	}
	ad, err := a.Studio.Ad(sessionID(r), index)
	if err != nil {
		a.adLookupFailed(w, err)
		return
	}

	disposition := "attachment"
	if r.URL.Query().Get("inline") == "1" {
		disposition = "inline"
	}
	w.Header().Set("Content-Type", imageContentType(ad.Image))
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{
		"filename": DownloadName(ad.Headline),
	}))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Header().Set("Content-Length", strconv.Itoa(len(ad.Image.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(ad.Image.Data)
}

// AdsArchive bundles every ad of the current results into one zip.
func (a *App) AdsArchive(w http.ResponseWriter, r *http.Request) {
	snap := a.Studio.Snapshot(sessionID(r))
	if snap.State != studio.StateResults || len(snap.Ads) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "there are no ads to download")
		return
	}

	assets := make([]zip.Asset, len(snap.Ads))
	for i, ad := range snap.Ads {
		assets[i] = zip.Asset{Filename: DownloadName(ad.Headline), Data: ad.Image.Data}
	}
	var buf bytes.Buffer
	if err := zip.WriteArchive(&buf, assets); err != nil {
		a.Logger.Error().Err(err).Str("session", snap.SessionID).Msg("build ads archive")
		a.error(w, http.StatusInternalServerError, "internal", "could not build the archive")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": "ads.zip",
	}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (a *App) adLookupFailed(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, studio.ErrAdNotFound), errors.Is(err, domain.ErrSessionNotFound):
		a.error(w, http.StatusNotFound, "not_found", "ad not found")
	default:
		a.Logger.Error().Err(err).Msg("ad lookup")
		a.error(w, http.StatusInternalServerError, "internal", "ad lookup failed")
	}
}

func imageContentType(img domain.Image) string {
	if img.MIMEType != "" {
		return img.MIMEType
	}
	return http.DetectContentType(img.Data)
}
