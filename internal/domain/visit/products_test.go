package visit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProducts(t *testing.T) {
	t.Run("nil and blank", func(t *testing.T) {
		assert.Nil(t, ParseProducts(nil))
		assert.Nil(t, ParseProducts(ptr("  ")))
	})

	t.Run("not an array", func(t *testing.T) {
		assert.Nil(t, ParseProducts(ptr(`{"name":"Panadol"}`)))
		assert.Nil(t, ParseProducts(ptr(`"Panadol"`)))
	})

	t.Run("malformed", func(t *testing.T) {
		assert.Nil(t, ParseProducts(ptr(`[{"name":`)))
		assert.Nil(t, ParseProducts(ptr(`[{"name":"Panadol"},`)))
	})

	t.Run("stray elements are skipped", func(t *testing.T) {
		lines := ParseProducts(ptr(`[{"name":"Panadol","quantity":2}, "legacy free text", 7, null, [1]]`))
		require.Len(t, lines, 1)
		assert.Equal(t, "Panadol", lines[0].Name)
		assert.Equal(t, 2.0, *lines[0].Quantity)

		lines = ParseProducts(ptr(`[1, 2]`))
		assert.NotNil(t, lines)
		assert.Empty(t, lines)
	})

	t.Run("scalar names", func(t *testing.T) {
		lines := ParseProducts(ptr(`[{"name":123,"quantity":1},{"name":true},{"name":{"en":"x"}}]`))
		require.Len(t, lines, 3)
		assert.Equal(t, "123", lines[0].Name)
		assert.Equal(t, "true", lines[1].Name)
		assert.Equal(t, "", lines[2].Name)
	})

	t.Run("loose quantities", func(t *testing.T) {
		lines := ParseProducts(ptr(`[
			{"name":"Panadol","quantity":3,"unit":"box"},
			{"name":"Brufen","quantity":" 2.5 ","notes":7},
			{"name":"Zyrtec","quantity":"lots"},
			{"name":"Augmentin","quantity":"NaN"}
		]`))
		require.Len(t, lines, 4)

		assert.Equal(t, 3.0, *lines[0].Quantity)
		assert.Equal(t, "box", *lines[0].Unit)
		assert.Equal(t, 2.5, *lines[1].Quantity)
		assert.Nil(t, lines[1].Notes)
		assert.Nil(t, lines[2].Quantity)
		assert.Nil(t, lines[3].Quantity)
	})

	t.Run("empty array", func(t *testing.T) {
		lines := ParseProducts(ptr(`[]`))
		assert.NotNil(t, lines)
		assert.Empty(t, lines)
	})
}

func TestProductKey(t *testing.T) {
	assert.Equal(t, "panadol extra", ProductLine{Name: "  Panadol Extra "}.Key())
}

func TestEncodeProducts(t *testing.T) {
	s, err := EncodeProducts(nil)
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = EncodeProducts([]ProductLine{{Name: "Panadol", Quantity: ptr(2.0)}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"Panadol","quantity":2,"unit":null,"notes":null}]`, *s)

	back := ParseProducts(s)
	require.Len(t, back, 1)
	assert.Equal(t, "Panadol", back[0].Name)
}
