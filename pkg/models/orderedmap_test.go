package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/analytiqhub/docrouter/pkg/models"
)

func TestOrderedMapJSONRoundTripPreservesInputOrder(t *testing.T) {
	raw := []byte(`{"total":"1234.56","vendor":"Acme","invoice_date":"2026-01-15"}`)

	m := models.NewOrderedMap()
	require.NoError(t, json.Unmarshal(raw, m))
	assert.Equal(t, []string{"total", "vendor", "invoice_date"}, m.Keys())

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(out))
	assert.Equal(t, `{"total":"1234.56","vendor":"Acme","invoice_date":"2026-01-15"}`, string(out))
}

func TestOrderedMapBSONRoundTripPreservesFieldOrder(t *testing.T) {
	m := models.NewOrderedMap()
	m.Set("vendor", "Acme")
	m.Set("total", "1234.56")

	raw, err := bson.Marshal(m)
	require.NoError(t, err)

	var decoded models.OrderedMap
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	assert.Equal(t, []string{"vendor", "total"}, decoded.Keys())
}

func TestOrderedMapReorderedFollowsSchemaThenRemainder(t *testing.T) {
	m := models.NewOrderedMap()
	m.Set("total", "1234.56")
	m.Set("extra_field", "unexpected")
	m.Set("vendor", "Acme")

	reordered := m.Reordered([]string{"vendor", "total"})
	assert.Equal(t, []string{"vendor", "total", "extra_field"}, reordered.Keys(), "schema-declared keys come first, in schema order; unknown keys trail in their original order")

	v, ok := reordered.Get("vendor")
	require.True(t, ok)
	assert.Equal(t, "Acme", v)
}

func TestOrderedMapSameKeySetIgnoresOrderAndValues(t *testing.T) {
	a := models.NewOrderedMap()
	a.Set("vendor", "Acme")
	a.Set("total", "100")

	b := models.NewOrderedMap()
	b.Set("total", "999")
	b.Set("vendor", "Globex")

	assert.True(t, a.SameKeySet(b), "key set equality does not care about order or value")

	c := models.NewOrderedMap()
	c.Set("vendor", "Acme")
	assert.False(t, a.SameKeySet(c))
}

func TestOrderedMapCloneIsIndependentOfKeyMutation(t *testing.T) {
	original := models.NewOrderedMap()
	original.Set("a", 1)

	clone := original.Clone()
	clone.Set("b", 2)

	assert.Equal(t, []string{"a"}, original.Keys(), "mutating the clone must not affect the original")
	assert.Equal(t, []string{"a", "b"}, clone.Keys())
}
