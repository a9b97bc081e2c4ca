package services

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"reviewflow/internal/repositories"

	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

const maxSlugLength = 128

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// DeriveSlug turns a company name into a URL-safe slug: "Acme Corporation" -> "acme-corporation".
// Returns "" when nothing usable remains.
func DeriveSlug(name string) string {
	// убираем диакритику: "Café" -> "cafe"
	decomposed := norm.NFKD.String(strings.ToLower(name))
	var b strings.Builder
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	slug := strings.Trim(nonSlugChars.ReplaceAllString(b.String(), "-"), "-")
	if len(slug) > maxSlugLength-8 {
		slug = strings.TrimRight(slug[:maxSlugLength-8], "-")
	}
	return slug
}

// fallbackClientSlug is used when the company name yields nothing.
func fallbackClientSlug(now time.Time) string {
	return fmt.Sprintf("client-%d", now.UnixMilli())
}

// uniqueSlug appends -2, -3, ... until base is free across clients and sellers.
func uniqueSlug(db *gorm.DB, lookup repositories.LookupRepository, base, exceptID string) (string, error) {
	candidate := base
	for i := 2; ; i++ {
		taken, err := lookup.SlugInUse(db, candidate, exceptID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
