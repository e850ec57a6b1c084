package collection

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeItem_FlattensPairsInOrder(t *testing.T) {
	item := Item{
		Data: []Field{
			{Name: "id", Value: float64(456)},
			{Name: "first_name", Value: "Dana"},
			{Name: "last_name", Value: "Okafor"},
		},
	}

	rec, err := DecodeItem(item)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "first_name", "last_name"}, rec.Names())
	assert.Equal(t, "Dana", rec.Get("first_name"))

	id, ok := rec.Int("id")
	require.True(t, ok)
	assert.Equal(t, int64(456), id)
}

func TestDecodeItem_DuplicateNameIsMalformed(t *testing.T) {
	item := Item{
		Data: []Field{
			{Name: "id", Value: float64(1)},
			{Name: "id", Value: float64(2)},
		},
	}

	_, err := DecodeItem(item)
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
	assert.Contains(t, err.Error(), "duplicate field name")
}

func TestDecodeItem_EmptyNameIsMalformed(t *testing.T) {
	_, err := DecodeItem(Item{Data: []Field{{Name: "", Value: "x"}}})
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
}

func TestDecodeItem_PreservesNullVersusAbsent(t *testing.T) {
	rec, err := DecodeItem(Item{Data: []Field{{Name: "email", Value: nil}}})
	require.NoError(t, err)

	v, present := rec.Lookup("email")
	assert.True(t, present, "explicit null must be present")
	assert.Nil(t, v)

	_, present = rec.Lookup("phone")
	assert.False(t, present, "omitted field must be absent")
}

func TestDecodeItem_CarriesLinks(t *testing.T) {
	item := Item{
		Data:  []Field{{Name: "id", Value: float64(1)}},
		Links: []Link{{Rel: "team", Href: "https://api.example.com/teams/9"}},
	}

	rec, err := DecodeItem(item)
	require.NoError(t, err)

	href, ok := rec.Link("team")
	require.True(t, ok)
	assert.Equal(t, "https://api.example.com/teams/9", href)

	_, ok = rec.Link("next")
	assert.False(t, ok)
}

func TestDecodeCollection_PreservesCountAndOrder(t *testing.T) {
	env := &Envelope{Collection: Collection{
		Items: []Item{
			{Data: []Field{{Name: "id", Value: float64(1)}}},
			{Data: []Field{{Name: "id", Value: float64(2)}}},
			{Data: []Field{{Name: "id", Value: float64(3)}}},
		},
	}}

	records, err := DecodeCollection(env)
	require.NoError(t, err)
	require.Len(t, records, 3)

	for i, rec := range records {
		id, ok := rec.Int("id")
		require.True(t, ok)
		assert.Equal(t, int64(i+1), id)
	}
}

func TestDecodeCollection_EmptyItemsIsEmptyNotError(t *testing.T) {
	env, err := Decode([]byte(`{"collection":{"items":[]}}`))
	require.NoError(t, err)

	records, err := DecodeCollection(env)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotNil(t, records)
}

func TestDecodeCollection_MalformedItemNamesIndex(t *testing.T) {
	env := &Envelope{Collection: Collection{
		Items: []Item{
			{Data: []Field{{Name: "id", Value: float64(1)}}},
			{Data: []Field{{Name: "x", Value: "a"}, {Name: "x", Value: "b"}}},
		},
	}}

	_, err := DecodeCollection(env)
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
	assert.Contains(t, err.Error(), "item 1")
}

func TestDecode_RejectsNonJSON(t *testing.T) {
	_, err := Decode([]byte("<html>not json</html>"))
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
}

func TestDecode_UnknownCollectionFieldsIgnored(t *testing.T) {
	// Upstream additions at the collection level must not break decoding.
	env, err := Decode([]byte(`{"collection":{"version":"3.870.0","brand_new_key":true,"items":[{"data":[{"name":"id","value":7}]}]}}`))
	require.NoError(t, err)
	assert.Equal(t, "3.870.0", env.Collection.Version)

	records, err := DecodeCollection(env)
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestEncodeBody_RoundTripsThroughDecodeItem(t *testing.T) {
	orig, err := RecordFromPairs(
		"team_id", float64(456),
		"name", "Practice",
		"is_game", false,
		"notes", "bring cones",
	)
	require.NoError(t, err)

	body, err := EncodeBody(orig)
	require.NoError(t, err)

	var tpl Template
	require.NoError(t, json.Unmarshal(body, &tpl))

	decoded, err := DecodeItem(Item{Data: tpl.Template.Data})
	require.NoError(t, err)
	assert.True(t, orig.Equal(decoded), "decode(encode(M)) must equal M")
}

func TestEncodeBody_TemplateShape(t *testing.T) {
	rec, err := RecordFromPairs("status", "yes")
	require.NoError(t, err)

	body, err := EncodeBody(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"template":{"data":[{"name":"status","value":"yes"}]}}`, string(body))
}

func TestExtractLink(t *testing.T) {
	links := []Link{
		{Rel: "self", Href: "https://api.example.com/members/search?page=1"},
		{Rel: "next", Href: "https://api.example.com/members/search?page=2"},
	}

	href, ok := ExtractLink(links, "next")
	require.True(t, ok)
	assert.Equal(t, "https://api.example.com/members/search?page=2", href)

	_, ok = ExtractLink(links, "prev")
	assert.False(t, ok)
}

func TestRecord_MarshalJSONPreservesOrder(t *testing.T) {
	rec, err := RecordFromPairs("b", float64(2), "a", float64(1), "c", nil)
	require.NoError(t, err)

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"b":2,"a":1,"c":null}`, string(out))
}

func TestRecord_StringRendering(t *testing.T) {
	rec := NewRecord()
	rec.Set("count", float64(12))
	rec.Set("active", true)
	rec.Set("name", "Blue Sox")
	rec.Set("gone", nil)

	assert.Equal(t, "12", rec.String("count"))
	assert.Equal(t, "true", rec.String("active"))
	assert.Equal(t, "Blue Sox", rec.String("name"))
	assert.Equal(t, "", rec.String("gone"))
	assert.Equal(t, "", rec.String("missing"))
}

func TestRecord_IntFromStringID(t *testing.T) {
	rec := NewRecord()
	rec.Set("id", "456")

	id, ok := rec.Int("id")
	require.True(t, ok)
	assert.Equal(t, int64(456), id)

	rec.Set("id", "not-a-number")
	_, ok = rec.Int("id")
	assert.False(t, ok)
}
