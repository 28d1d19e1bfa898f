package export

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

const maxSlugLen = 40

var slugPattern = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Archiver stores raw detail-page markup verbatim so extraction heuristics
// can be reworked later without refetching. Archiving is best-effort: a
// failed write returns an empty path and the harvest moves on.
type Archiver struct {
	dir string
}

func NewArchiver(outputDir string) *Archiver {
	return &Archiver{dir: filepath.Join(outputDir, "pages")}
}

// Save writes the markup under a filename keyed by site, slugified item name
// and timestamp. Returns the path, or "" when the write failed.
func (a *Archiver) Save(markup, siteName, itemName string) string {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return ""
	}
	filename := filepath.Join(a.dir, fmt.Sprintf("%s_%s_%d.html", siteName, Slugify(itemName), time.Now().Unix()))
	if err := os.WriteFile(filename, []byte(markup), 0o644); err != nil {
		return ""
	}
	return filename
}

// Slugify reduces an item name to a filesystem-safe token.
func Slugify(name string) string {
	if name == "" {
		name = "product"
	}
	slug := slugPattern.ReplaceAllString(name, "_")
	if len(slug) > maxSlugLen {
		slug = slug[:maxSlugLen]
	}
	return slug
}
