package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"adprint/internal/domain"
)

var acceptedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
}

// readSpecForm parses the multipart creation form. Images that were not
// re-uploaded are carried over from the previous draft.
func readSpecForm(w http.ResponseWriter, r *http.Request, previous domain.SpecForm) (domain.SpecForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return domain.SpecForm{}, fmt.Errorf("parse form: %w", err)
	}

	form := domain.SpecForm{
		BrandName:        r.FormValue("brand_name"),
		BrandFeatures:    r.FormValue("brand_features"),
		AudienceAge:      r.FormValue("audience_age"),
		AudienceLocation: r.FormValue("audience_location"),
		GenerationMode:   r.FormValue("generation_mode"),
		VibeTheme:        r.FormValue("vibe_theme"),
	}
	if r.MultipartForm != nil {
		form.AspectRatios = r.MultipartForm.Value["aspect_ratios"]
	} else {
		form.AspectRatios = r.Form["aspect_ratios"]
	}

	var invalid []string
	product, err := readImage(r, "product_image")
	switch {
	case errors.Is(err, errUnsupportedImage):
		invalid = append(invalid, "product image")
	case err != nil:
		return domain.SpecForm{}, err
	case product != nil:
		form.ProductImage = product
	default:
		form.ProductImage = previous.ProductImage
	}

	features, err := readImage(r, "features_image")
	switch {
	case errors.Is(err, errUnsupportedImage):
		invalid = append(invalid, "features image")
	case err != nil:
		return domain.SpecForm{}, err
	case features != nil:
		form.FeaturesImage = features
	default:
		form.FeaturesImage = previous.FeaturesImage
	}

	if len(invalid) > 0 {
		return form, &domain.ValidationError{Fields: invalid}
	}
	return form, nil
}

var errUnsupportedImage = errors.New("unsupported image type")

// readImage returns nil when the field carries no file.
func readImage(r *http.Request, field string) (*domain.Image, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	mimeType := detectImageType(header, data)
	if !acceptedImageTypes[mimeType] {
		return nil, errUnsupportedImage
	}
	return &domain.Image{Data: data, MIMEType: mimeType}, nil
}

// detectImageType trusts the sniffed content over the declared header.
func detectImageType(header *multipart.FileHeader, data []byte) string {
	sniffed := http.DetectContentType(data)
	if acceptedImageTypes[sniffed] {
		return sniffed
	}
	declared, _, err := mime.ParseMediaType(header.Header.Get("Content-Type"))
	if err == nil && strings.HasPrefix(declared, "image/") {
		return declared
	}
	return sniffed
}
