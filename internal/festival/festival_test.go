package festival

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGrouping_PreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	g := NewGrouping()
	g.Set("March", []Record{{Date: "8", Day: "Saturday", Name: "Holi"}})
	g.Set("January", []Record{{Date: "1", Day: "Wednesday", Name: "New Year"}})
	g.Set("February", []Record{{Date: "14", Day: "Friday", Name: "Vasant Panchami"}})

	require.Equal(t, []string{"March", "January", "February"}, g.Names())

	raw, err := json.Marshal(g)
	require.NoError(t, err)

	// Key order in the encoded object must follow insertion order.
	require.Equal(t, []string{"March", "January", "February"}, objectKeyOrder(t, raw))
}

// objectKeyOrder returns the top-level keys of a JSON object in the
// order they appear in the encoded bytes.
func objectKeyOrder(t *testing.T, raw []byte) []string {
	t.Helper()

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	require.NoError(t, err)
	require.Equal(t, json.Delim('{'), tok)

	var keys []string
	for dec.More() {
		tok, err = dec.Token()
		require.NoError(t, err)
		key, ok := tok.(string)
		require.True(t, ok)
		keys = append(keys, key)

		var skip json.RawMessage
		require.NoError(t, dec.Decode(&skip))
	}
	return keys
}

func TestGrouping_SeedMarshalsEmptyLists(t *testing.T) {
	t.Parallel()

	g := NewGrouping()
	g.Seed(Categories()...)
	g.Append("Hindu Festivals", Record{Date: "1", Day: "Wednesday", Month: "January", Name: "New Year"})

	require.Equal(t, Categories(), g.Names())
	require.True(t, g.HasRecords())

	raw, err := json.Marshal(g)
	require.NoError(t, err)

	var decoded map[string][]Record
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded, 5)
	require.Len(t, decoded["Hindu Festivals"], 1)
	require.NotNil(t, decoded["Sikh Festivals"])
	require.Empty(t, decoded["Sikh Festivals"])

	// Empty seeded groups must encode as [] rather than null.
	require.NotContains(t, string(raw), "null")
}

func TestGrouping_SetReplacesAppendAccumulates(t *testing.T) {
	t.Parallel()

	g := NewGrouping()
	g.Set("January", []Record{{Date: "1", Day: "Wednesday", Name: "New Year"}})
	g.Set("January", []Record{{Date: "14", Day: "Tuesday", Name: "Pongal"}})
	require.Len(t, g.Records("January"), 1)
	require.Equal(t, "Pongal", g.Records("January")[0].Name)

	g.Append("January", Record{Date: "26", Day: "Sunday", Name: "Republic Day"})
	require.Len(t, g.Records("January"), 2)

	// Re-setting keeps the group's original position.
	g.Set("February", nil)
	g.Set("January", g.Records("January"))
	require.Equal(t, []string{"January", "February"}, g.Names())
}

func TestGrouping_EmptyStates(t *testing.T) {
	t.Parallel()

	g := NewGrouping()
	require.Zero(t, g.Len())
	require.False(t, g.HasRecords())
	require.Nil(t, g.Records("January"))

	raw, err := json.Marshal(g)
	require.NoError(t, err)
	require.JSONEq(t, `{}`, string(raw))

	g.Seed("Hindu Festivals")
	require.Equal(t, 1, g.Len())
	require.False(t, g.HasRecords())
}

func TestRecord_MonthOmittedWhenEmpty(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(Record{Date: "1", Day: "Wednesday", Name: "New Year"})
	require.NoError(t, err)
	require.JSONEq(t, `{"date":"1","day":"Wednesday","name":"New Year"}`, string(raw))

	raw, err = json.Marshal(Record{Date: "1", Day: "Wednesday", Name: "New Year", Month: "January"})
	require.NoError(t, err)
	require.JSONEq(t, `{"date":"1","day":"Wednesday","name":"New Year","month":"January"}`, string(raw))
}

func TestCategoryForColor(t *testing.T) {
	t.Parallel()

	category, ok := CategoryForColor("#a60000")
	require.True(t, ok)
	require.Equal(t, "Hindu Festivals", category)

	category, ok = CategoryForColor("#4A3475")
	require.True(t, ok)
	require.Equal(t, "Government Holidays", category)

	// Lookup is exact: a case variant of a known code does not match.
	_, ok = CategoryForColor("#4a3475")
	require.False(t, ok)

	_, ok = CategoryForColor("#123456")
	require.False(t, ok)
}

func TestCategories_ReturnsCopy(t *testing.T) {
	t.Parallel()

	first := Categories()
	first[0] = "mutated"
	require.Equal(t, "Hindu Festivals", Categories()[0])
	require.Len(t, Categories(), 5)
}

func TestQueryFingerprint_Deterministic(t *testing.T) {
	t.Parallel()

	q := Query{Kind: KindFestivals, Year: 2025, Month: 3}
	require.Equal(t, q.Fingerprint(), q.Fingerprint())
	require.Len(t, q.Fingerprint(), 64)
}

func TestQueryFingerprint_VariesByField(t *testing.T) {
	t.Parallel()

	base := Query{Kind: KindFestivals, Year: 2025, Month: 3}
	fingerprints := map[string]Query{
		base.Fingerprint(): base,
	}
	variants := []Query{
		{Kind: KindReligious, Year: 2025, Month: 3},
		{Kind: KindFestivals, Year: 2026, Month: 3},
		{Kind: KindFestivals, Year: 2025, Month: 4},
		{Kind: KindFestivals, Year: 2025},
	}
	for _, v := range variants {
		fp := v.Fingerprint()
		prior, clash := fingerprints[fp]
		require.False(t, clash, "fingerprint collision between %+v and %+v", v, prior)
		fingerprints[fp] = v
	}
}
