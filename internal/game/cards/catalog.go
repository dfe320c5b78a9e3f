package cards

import "github.com/maslul/backend/internal/game/models"

// builtinDecks is the default card catalog, used when no deck file is
// configured.
func builtinDecks() *Decks {
	community := []models.Card{
		{ID: "com-01", Description: "The community tithe returns 100 to you", Action: models.CardAddMoney, Param: "100"},
		{ID: "com-02", Description: "Harvest festival! Collect 150", Action: models.CardAddMoney, Param: "150"},
		{ID: "com-03", Description: "Your well runs dry. Pay 50 for water", Action: models.CardLoseMoney, Param: "50"},
		{ID: "com-04", Description: "Roof repairs after the storm. Pay 120", Action: models.CardLoseMoney, Param: "120"},
		{ID: "com-05", Description: "A stranger repays an old debt", Action: models.CardAddMoney},
		{ID: "com-06", Description: "Charity collection at the gate", Action: models.CardLoseMoney},
		{ID: "com-07", Description: "Return to the Start tile and collect your bonus", Action: models.CardMoveToWithBonus, Param: "0"},
		{ID: "com-08", Description: "Visit the Spice Bazaar", Action: models.CardMoveTo, Param: "10"},
		{ID: "com-09", Description: "Caught trading on the Sabbath. Go to jail", Action: models.CardGoToJail},
		{ID: "com-10", Description: "The judge owes you a favor", Action: models.CardJailToken},
	}
	chance := []models.Card{
		{ID: "cha-01", Description: "You win the dice tournament. Collect 200", Action: models.CardAddMoney, Param: "200"},
		{ID: "cha-02", Description: "Bandits raid your caravan. Pay 100", Action: models.CardLoseMoney, Param: "100"},
		{ID: "cha-03", Description: "A lucky find on the road", Action: models.CardAddMoney},
		{ID: "cha-04", Description: "Your donkey throws a shoe", Action: models.CardLoseMoney},
		{ID: "cha-05", Description: "Sail with the next ship from the nearest port", Action: models.CardMoveToPort},
		{ID: "cha-06", Description: "Summoned to the Citadel Heights", Action: models.CardMoveTo, Param: "31"},
		{ID: "cha-07", Description: "March to the Start tile and collect your bonus", Action: models.CardMoveToWithBonus, Param: "0"},
		{ID: "cha-08", Description: "Caught smuggling. Go directly to jail", Action: models.CardGoToJail},
		{ID: "cha-09", Description: "A letter of pardon from the governor", Action: models.CardJailToken},
		{ID: "cha-10", Description: "Tax collectors demand 75", Action: models.CardLoseMoney, Param: "75"},
	}

	for i := range community {
		community[i].Deck = models.DeckCommunity
	}
	for i := range chance {
		chance[i].Deck = models.DeckChance
	}
	return &Decks{Community: community, Chance: chance}
}
