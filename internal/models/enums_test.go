package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategoryAcceptsMemberNamesAndLabels(t *testing.T) {
	for _, raw := range []string{"TSHIRT", "tshirt", "T-Shirt", " t-shirt "} {
		got, ok := ParseCategory(raw)
		require.True(t, ok, raw)
		assert.Equal(t, CategoryTShirt, got, raw)
	}

	_, ok := ParseCategory("spacesuit")
	assert.False(t, ok)
	_, ok = ParseCategory("")
	assert.False(t, ok)
}

func TestParseSeasonIsCaseInsensitive(t *testing.T) {
	got, ok := ParseSeason("summer")
	require.True(t, ok)
	assert.Equal(t, SeasonSummer, got)
}

func TestScanRejectsUnknownPersistedValue(t *testing.T) {
	var s Season
	require.NoError(t, s.Scan("AUTUMN"))
	assert.Equal(t, SeasonAutumn, s)

	// Labels are a presentation format, never a storage format.
	assert.Error(t, s.Scan("Autumn"))
	assert.Error(t, s.Scan(42))

	var tag Tag
	assert.Error(t, tag.Scan([]byte("DISCO")))
}

func TestValueRejectsInvalidMember(t *testing.T) {
	_, err := Category("NOPE").Value()
	assert.Error(t, err)

	v, err := CategoryJeans.Value()
	require.NoError(t, err)
	assert.Equal(t, "JEANS", v)
}

func TestEnumsMarshalAsLabels(t *testing.T) {
	data, err := json.Marshal(struct {
		Category Category `json:"category"`
		Seasons  []Season `json:"seasons"`
		Tags     []Tag    `json:"tags"`
	}{CategoryTShirt, []Season{SeasonSummer, SeasonAutumn}, []Tag{TagCasual}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"category":"T-Shirt","seasons":["Summer","Autumn"],"tags":["Casual"]}`, string(data))
}
