package zip

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"
)

type Asset struct {
	Filename string
	Data     []byte
}

// WriteArchive streams assets into a zip archive on w. Repeated file names
// get a numeric suffix so no entry is shadowed.
func WriteArchive(w io.Writer, assets []Asset) error {
	zw := zip.NewWriter(w)
	seen := make(map[string]int, len(assets))
	for _, asset := range assets {
		name := uniqueName(asset.Filename, seen)
		fw, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("zip: create %s: %w", name, err)
		}
		if _, err := fw.Write(asset.Data); err != nil {
			return fmt.Errorf("zip: write %s: %w", name, err)
		}
	}
	return zw.Close()
}

func uniqueName(name string, seen map[string]int) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "file"
	}
	n := seen[name]
	seen[name] = n + 1
	if n == 0 {
		return name
	}
	ext := path.Ext(name)
	candidate := fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), n+1, ext)
	if _, taken := seen[candidate]; taken {
		return uniqueName(candidate, seen)
	}
	seen[candidate] = 1
	return candidate
}
