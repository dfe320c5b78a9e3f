package board

import "github.com/maslul/backend/internal/game/models"

// DefaultTrack returns the standard 32-tile Maslul track.
func DefaultTrack() *Definition {
	def, err := New(defaultTiles())
	if err != nil {
		// The built-in track is validated by tests; failing here means the
		// definition below was edited into an inconsistent state.
		panic(err)
	}
	return def
}

func defaultTiles() []models.Tile {
	prop := func(id int, name string, price, rent int) models.Tile {
		return models.Tile{
			ID:            id,
			Name:          name,
			Type:          models.TileProperty,
			Price:         price,
			BaseRent:      rent,
			ChurchCost:    price / 2,
			SynagogueCost: price,
		}
	}
	special := func(id int, name string, tt models.TileType) models.Tile {
		return models.Tile{ID: id, Name: name, Type: tt}
	}

	return []models.Tile{
		special(0, "Start", models.TileStart),
		prop(1, "Old Market Lane", 60, 4),
		special(2, "Community Chest", models.TileCommunity),
		prop(3, "Potter's Alley", 60, 6),
		special(4, "Road Toll", models.TileTax),
		special(5, "North Port", models.TilePort),
		prop(6, "Cedar Street", 100, 8),
		special(7, "Chance", models.TileChance),
		prop(8, "Olive Grove", 100, 8),
		special(9, "Jail", models.TileJail),
		prop(10, "Spice Bazaar", 140, 10),
		special(11, "Sabbath", models.TileSabbath),
		prop(12, "Weaver's Row", 140, 12),
		special(13, "Oasis", models.TileRestStop),
		special(14, "East Port", models.TilePort),
		prop(15, "Vineyard Hill", 180, 14),
		special(16, "Community Chest", models.TileCommunity),
		prop(17, "Shepherd's Field", 180, 14),
		special(18, "Pilgrim's Blessing", models.TileImmunity),
		prop(19, "Fountain Square", 220, 18),
		special(20, "Chance", models.TileChance),
		prop(21, "Scribe's Quarter", 220, 18),
		special(22, "South Port", models.TilePort),
		prop(23, "Caravan Road", 260, 22),
		special(24, "Go To Jail", models.TileGoToJail),
		prop(25, "Temple Approach", 260, 22),
		special(26, "Road Toll", models.TileTax),
		prop(27, "King's Highway", 300, 26),
		special(28, "Oasis", models.TileRestStop),
		special(29, "West Port", models.TilePort),
		prop(30, "Palace Gardens", 350, 35),
		prop(31, "Citadel Heights", 400, 50),
	}
}
