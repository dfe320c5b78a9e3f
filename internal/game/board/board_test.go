package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maslul/backend/internal/game/models"
)

func validTiles() []models.Tile {
	return []models.Tile{
		{ID: 0, Name: "Start", Type: models.TileStart},
		{ID: 1, Name: "Lane", Type: models.TileProperty, Price: 60, BaseRent: 4, ChurchCost: 30, SynagogueCost: 60},
		{ID: 2, Name: "Jail", Type: models.TileJail},
		{ID: 3, Name: "North Port", Type: models.TilePort},
		{ID: 4, Name: "South Port", Type: models.TilePort},
	}
}

func TestNewAcceptsValidTrack(t *testing.T) {
	def, err := New(validTiles())
	require.NoError(t, err)
	assert.Equal(t, 5, def.Len())
	assert.Equal(t, "Jail", def.Tile(2).Name)
}

func TestNewValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func([]models.Tile) []models.Tile
	}{
		{"too short", func(ts []models.Tile) []models.Tile {
			return ts[:1]
		}},
		{"id mismatch", func(ts []models.Tile) []models.Tile {
			ts[1].ID = 7
			return ts
		}},
		{"property without price", func(ts []models.Tile) []models.Tile {
			ts[1].Price = 0
			return ts
		}},
		{"property without construction costs", func(ts []models.Tile) []models.Tile {
			ts[1].ChurchCost = 0
			return ts
		}},
		{"no jail", func(ts []models.Tile) []models.Tile {
			ts[2].Type = models.TileRestStop
			return ts
		}},
		{"two jails", func(ts []models.Tile) []models.Tile {
			ts[3].Type = models.TileJail
			return ts
		}},
		{"single port", func(ts []models.Tile) []models.Tile {
			ts[4].Type = models.TileRestStop
			return ts
		}},
		{"unknown type", func(ts []models.Tile) []models.Tile {
			ts[4].Type = "VOLCANO"
			return ts
		}},
		{"ownership on non-property", func(ts []models.Tile) []models.Tile {
			ts[0].OwnerID = "p1"
			return ts
		}},
		{"construction on non-property", func(ts []models.Tile) []models.Tile {
			ts[3].Churches = 1
			return ts
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.mutate(validTiles()))
			assert.Error(t, err)
		})
	}
}

func TestNewAllowsZeroPorts(t *testing.T) {
	ts := validTiles()
	ts[3].Type = models.TileRestStop
	ts[4].Type = models.TileRestStop
	_, err := New(ts)
	assert.NoError(t, err)
}

func TestDefaultTrackShape(t *testing.T) {
	def := DefaultTrack()
	assert.Equal(t, 32, def.Len())
	assert.Equal(t, models.TileStart, def.Tile(0).Type)
	assert.Equal(t, []int{9}, def.TilesOfType(models.TileJail))
	assert.Equal(t, []int{5, 14, 22, 29}, def.TilesOfType(models.TilePort))
	assert.NotEmpty(t, def.TilesOfType(models.TileCommunity))
	assert.NotEmpty(t, def.TilesOfType(models.TileChance))
}

func TestInstantiateReturnsIndependentCopy(t *testing.T) {
	def := DefaultTrack()
	a := def.Instantiate()
	b := def.Instantiate()

	a[1].OwnerID = "p1"
	a[1].Churches = 2
	assert.Empty(t, b[1].OwnerID)
	assert.Zero(t, b[1].Churches)
	assert.Empty(t, def.Tile(1).OwnerID)
}

func TestNextOfTypeWrapsAround(t *testing.T) {
	tiles := DefaultTrack().Instantiate()

	assert.Equal(t, 5, NextOfType(tiles, 0, models.TilePort))
	assert.Equal(t, 14, NextOfType(tiles, 5, models.TilePort), "the from tile itself is excluded")
	assert.Equal(t, 5, NextOfType(tiles, 29, models.TilePort), "search wraps past start")
	assert.Equal(t, -1, NextOfType(tiles, 0, "VOLCANO"))
}

func TestJailIndex(t *testing.T) {
	tiles := DefaultTrack().Instantiate()
	assert.Equal(t, 9, JailIndex(tiles))

	assert.Equal(t, -1, JailIndex([]models.Tile{{ID: 0, Type: models.TileStart}}))
}
