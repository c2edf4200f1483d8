package catalog

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/bumothekid/clothing-booth-api-v2/internal/apperr"
	"github.com/bumothekid/clothing-booth-api-v2/internal/constants"
	"github.com/bumothekid/clothing-booth-api-v2/internal/models"
)

var (
	textPolicy = bluemonday.StrictPolicy()
	colorRegex = regexp.MustCompile(`^#?([0-9A-Fa-f]{6})$`)
)

// cleanText strips markup from user supplied text and trims it.
func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

func checkName(raw string, invalid *apperr.Error) (string, error) {
	name := cleanText(raw)
	n := utf8.RuneCountInString(name)
	if n < constants.NameMinLength || n > constants.NameMaxLength {
		return "", invalid
	}
	return name, nil
}

// checkDescription returns nil for an empty description.
func checkDescription(raw *string, tooLong *apperr.Error) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	desc := cleanText(*raw)
	if desc == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(desc) > constants.DescriptionMaxLength {
		return nil, tooLong
	}
	return &desc, nil
}

// normalizeColor accepts "#a1b2c3" or "a1b2c3" and returns "#A1B2C3".
func normalizeColor(raw string) (string, error) {
	m := colorRegex.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", ErrColorInvalid
	}
	return "#" + strings.ToUpper(m[1]), nil
}

func parseCategory(raw string) (models.Category, error) {
	c, ok := models.ParseCategory(raw)
	if !ok {
		return "", ErrCategoryInvalid.WithMessagef("The category %q is invalid. Choose one of: %s.",
			raw, strings.Join(models.CategoryLabels(), ", "))
	}
	return c, nil
}

func parseSeasons(raw []string) ([]models.Season, error) {
	out := make([]models.Season, 0, len(raw))
	seen := make(map[models.Season]bool, len(raw))
	for _, r := range raw {
		s, ok := models.ParseSeason(r)
		if !ok {
			return nil, ErrSeasonInvalid.WithMessagef("The season %q is invalid. Choose from: %s.",
				r, strings.Join(models.SeasonLabels(), ", "))
		}
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out, nil
}

func parseTags(raw []string) ([]models.Tag, error) {
	out := make([]models.Tag, 0, len(raw))
	seen := make(map[models.Tag]bool, len(raw))
	for _, r := range raw {
		t, ok := models.ParseTag(r)
		if !ok {
			return nil, ErrTagInvalid.WithMessagef("The tag %q is invalid. Choose from: %s.",
				r, strings.Join(models.TagLabels(), ", "))
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out, nil
}

func checkPage(limit, offset int) error {
	if limit < 1 || limit > constants.MaxPageLimit {
		return ErrLimitInvalid
	}
	if offset < 0 {
		return ErrOffsetInvalid
	}
	return nil
}

// uniqueIDs trims, drops blanks and keeps the first occurrence of each id.
func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
