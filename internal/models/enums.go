package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Enum values are persisted by member name (e.g. "SUMMER") and rendered to
// clients by label (e.g. "Summer"). Reads from the store are strict: a stored
// value that is not a member name fails the scan instead of being coerced.

type enumSet[T ~string] struct {
	name    string
	members []T
	labels  map[T]string
}

func newEnumSet[T ~string](name string, pairs ...enumPair[T]) enumSet[T] {
	set := enumSet[T]{name: name, labels: make(map[T]string, len(pairs))}
	for _, p := range pairs {
		set.members = append(set.members, p.member)
		set.labels[p.member] = p.label
	}
	return set
}

type enumPair[T ~string] struct {
	member T
	label  string
}

func normalizeEnumInput(raw string) string {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(raw)
}

func (s enumSet[T]) parse(raw string) (T, bool) {
	key := normalizeEnumInput(raw)
	if key == "" {
		return "", false
	}
	for _, m := range s.members {
		if normalizeEnumInput(string(m)) == key || normalizeEnumInput(s.labels[m]) == key {
			return m, true
		}
	}
	return "", false
}

func (s enumSet[T]) valid(v T) bool {
	_, ok := s.labels[v]
	return ok
}

func (s enumSet[T]) scan(src any) (T, error) {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return "", fmt.Errorf("scanning %s: unsupported type %T", s.name, src)
	}
	if !s.valid(T(raw)) {
		return "", fmt.Errorf("scanning %s: invalid persisted value %q", s.name, raw)
	}
	return T(raw), nil
}

func (s enumSet[T]) value(v T) (driver.Value, error) {
	if !s.valid(v) {
		return nil, fmt.Errorf("encoding %s: invalid value %q", s.name, string(v))
	}
	return string(v), nil
}

func (s enumSet[T]) labelList() []string {
	out := make([]string, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, s.labels[m])
	}
	return out
}

type Season string

const (
	SeasonSpring Season = "SPRING"
	SeasonSummer Season = "SUMMER"
	SeasonAutumn Season = "AUTUMN"
	SeasonWinter Season = "WINTER"
)

var seasons = newEnumSet("season",
	enumPair[Season]{SeasonSpring, "Spring"},
	enumPair[Season]{SeasonSummer, "Summer"},
	enumPair[Season]{SeasonAutumn, "Autumn"},
	enumPair[Season]{SeasonWinter, "Winter"},
)

func ParseSeason(raw string) (Season, bool) { return seasons.parse(raw) }
func SeasonLabels() []string { return seasons.labelList() }
func (s Season) Valid() bool { return seasons.valid(s) }
func (s Season) Label() string { return seasons.labels[s] }
func (s Season) Value() (driver.Value, error) { return seasons.value(s) }
func (s Season) MarshalJSON() ([]byte, error) { return json.Marshal(s.Label()) }
func (s *Season) Scan(src any) (err error) {
	*s, err = seasons.scan(src)
	return err
}

type Tag string

const (
	TagCasual  Tag = "CASUAL"
	TagFormal  Tag = "FORMAL"
	TagSports  Tag = "SPORTS"
	TagVintage Tag = "VINTAGE"
	TagOutdoor Tag = "OUTDOOR"
	TagParty   Tag = "PARTY"
	TagWork    Tag = "WORK"
	TagBeach   Tag = "BEACH"
)

var tags = newEnumSet("tag",
	enumPair[Tag]{TagCasual, "Casual"},
	enumPair[Tag]{TagFormal, "Formal"},
	enumPair[Tag]{TagSports, "Sports"},
	enumPair[Tag]{TagVintage, "Vintage"},
	enumPair[Tag]{TagOutdoor, "Outdoor"},
	enumPair[Tag]{TagParty, "Party"},
	enumPair[Tag]{TagWork, "Work"},
	enumPair[Tag]{TagBeach, "Beach"},
)

func ParseTag(raw string) (Tag, bool) { return tags.parse(raw) }
func TagLabels() []string { return tags.labelList() }
func (t Tag) Valid() bool { return tags.valid(t) }
func (t Tag) Label() string { return tags.labels[t] }
func (t Tag) Value() (driver.Value, error) { return tags.value(t) }
func (t Tag) MarshalJSON() ([]byte, error) { return json.Marshal(t.Label()) }
func (t *Tag) Scan(src any) (err error) {
	*t, err = tags.scan(src)
	return err
}

type Category string

const (
	// Tops
	CategoryTShirt  Category = "TSHIRT"
	CategoryShirt   Category = "SHIRT"
	CategoryPolo    Category = "POLO"
	CategorySweater Category = "SWEATER"
	CategoryHoodie  Category = "HOODIE"
	CategoryJacket  Category = "JACKET"
	CategoryCoat    Category = "COAT"

	// Bottoms
	CategoryJeans  Category = "JEANS"
	CategoryShorts Category = "SHORTS"
	CategoryPants  Category = "PANTS"
	CategorySkirt  Category = "SKIRT"

	// Footwear
	CategorySneakers Category = "SNEAKERS"
	CategoryBoots    Category = "BOOTS"
	CategorySandals  Category = "SANDALS"
	CategoryHeels    Category = "HEELS"
	CategoryLoafers  Category = "LOAFERS"

	// Accessories
	CategoryHat       Category = "HAT"
	CategoryScarf     Category = "SCARF"
	CategoryGloves    Category = "GLOVES"
	CategoryBelt      Category = "BELT"
	CategoryBag       Category = "BAG"
	CategoryWatch     Category = "WATCH"
	CategoryAccessory Category = "ACCESSORY"
)

var categories = newEnumSet("category",
	enumPair[Category]{CategoryTShirt, "T-Shirt"},
	enumPair[Category]{CategoryShirt, "Shirt"},
	enumPair[Category]{CategoryPolo, "Polo"},
	enumPair[Category]{CategorySweater, "Sweater"},
	enumPair[Category]{CategoryHoodie, "Hoodie"},
	enumPair[Category]{CategoryJacket, "Jacket"},
	enumPair[Category]{CategoryCoat, "Coat"},
	enumPair[Category]{CategoryJeans, "Jeans"},
	enumPair[Category]{CategoryShorts, "Shorts"},
	enumPair[Category]{CategoryPants, "Pants"},
	enumPair[Category]{CategorySkirt, "Skirt"},
	enumPair[Category]{CategorySneakers, "Sneakers"},
	enumPair[Category]{CategoryBoots, "Boots"},
	enumPair[Category]{CategorySandals, "Sandals"},
	enumPair[Category]{CategoryHeels, "Heels"},
	enumPair[Category]{CategoryLoafers, "Loafers"},
	enumPair[Category]{CategoryHat, "Hat"},
	enumPair[Category]{CategoryScarf, "Scarf"},
	enumPair[Category]{CategoryGloves, "Gloves"},
	enumPair[Category]{CategoryBelt, "Belt"},
	enumPair[Category]{CategoryBag, "Bag"},
	enumPair[Category]{CategoryWatch, "Watch"},
	enumPair[Category]{CategoryAccessory, "Accessory"},
)

func ParseCategory(raw string) (Category, bool) { return categories.parse(raw) }
func CategoryLabels() []string { return categories.labelList() }
func AllCategories() []Category { return append([]Category(nil), categories.members...) }
func (c Category) Valid() bool { return categories.valid(c) }
func (c Category) Label() string { return categories.labels[c] }
func (c Category) Value() (driver.Value, error) { return categories.value(c) }
func (c Category) MarshalJSON() ([]byte, error) { return json.Marshal(c.Label()) }
func (c *Category) Scan(src any) (err error) {
	*c, err = categories.scan(src)
	return err
}
