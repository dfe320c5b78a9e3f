// Package board defines the static circular track. The definition is
// read-only after initialization; per-game tile state is instantiated
// from it and mutated only through the rules engine.
package board

import (
	"fmt"

	"github.com/maslul/backend/internal/game/models"
)

// Definition is the ordered list of tiles making up the track.
type Definition struct {
	tiles []models.Tile
}

// New validates the given tile list and returns a track definition.
// Malformed board data is a configuration error and fatal at game start.
func New(tiles []models.Tile) (*Definition, error) {
	if len(tiles) < 2 {
		return nil, fmt.Errorf("board must have at least 2 tiles, got %d", len(tiles))
	}
	jails := 0
	ports := 0
	for i, t := range tiles {
		if t.ID != i {
			return nil, fmt.Errorf("tile at index %d has ID %d; IDs must match track order", i, t.ID)
		}
		switch t.Type {
		case models.TileProperty:
			if t.Price <= 0 || t.BaseRent <= 0 {
				return nil, fmt.Errorf("property tile %d (%s) must have positive price and rent", i, t.Name)
			}
			if t.ChurchCost <= 0 || t.SynagogueCost <= 0 {
				return nil, fmt.Errorf("property tile %d (%s) must have positive construction costs", i, t.Name)
			}
		case models.TileJail:
			jails++
		case models.TilePort:
			ports++
		case models.TileGoToJail, models.TileCommunity, models.TileChance,
			models.TileRestStop, models.TileTax, models.TileSabbath,
			models.TileImmunity, models.TileStart:
			// no extra constraints
		default:
			return nil, fmt.Errorf("tile %d has unknown type %q", i, t.Type)
		}
		if t.Type != models.TileProperty && (t.OwnerID != "" || t.Churches != 0 || t.Synagogues != 0) {
			return nil, fmt.Errorf("non-property tile %d (%s) carries ownership state", i, t.Name)
		}
	}
	if jails != 1 {
		return nil, fmt.Errorf("board must have exactly one jail tile, got %d", jails)
	}
	if ports == 1 {
		return nil, fmt.Errorf("board with a single port would teleport onto itself")
	}
	return &Definition{tiles: tiles}, nil
}

// Len returns the number of tiles on the track.
func (d *Definition) Len() int {
	return len(d.tiles)
}

// Tile returns the tile at the given track index. An out-of-range index
// is a programmer error.
func (d *Definition) Tile(i int) models.Tile {
	return d.tiles[i]
}

// TilesOfType returns the indexes of all tiles with the given type, in
// track order.
func (d *Definition) TilesOfType(tt models.TileType) []int {
	var out []int
	for i, t := range d.tiles {
		if t.Type == tt {
			out = append(out, i)
		}
	}
	return out
}

// Instantiate returns a fresh per-game copy of the track.
func (d *Definition) Instantiate() []models.Tile {
	tiles := make([]models.Tile, len(d.tiles))
	copy(tiles, d.tiles)
	return tiles
}

// NextOfType returns the index of the first tile of the given type
// strictly after `from` in cyclic track order, or -1 if none exists.
func NextOfType(tiles []models.Tile, from int, tt models.TileType) int {
	n := len(tiles)
	for step := 1; step <= n; step++ {
		i := (from + step) % n
		if tiles[i].Type == tt {
			return i
		}
	}
	return -1
}

// JailIndex returns the track index of the jail tile, or -1.
func JailIndex(tiles []models.Tile) int {
	for i := range tiles {
		if tiles[i].Type == models.TileJail {
			return i
		}
	}
	return -1
}
