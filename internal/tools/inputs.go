package tools

type SearchInput struct {
	Queries []string `json:"queries"`
}

type NoInput struct{}

// AddEventInput needs at least one referenced entity. Create missing
// entities first to get their ids.
type AddEventInput struct {
	Description      string  `json:"description" jsonschema:"a detailed description of the event"`
	ShortDescription string  `json:"short_description,omitempty" jsonschema:"a one line summary of the event"`
	LocationIDs      []int64 `json:"location_ids,omitempty" jsonschema:"ids of the locations where the event happened"`
	CharacterIDs     []int64 `json:"character_ids,omitempty" jsonschema:"ids of the characters involved in the event"`
	PlayerIDs        []int64 `json:"player_ids,omitempty" jsonschema:"ids of the players involved in the event"`
	ItemIDs          []int64 `json:"item_ids,omitempty" jsonschema:"ids of the items involved in the event"`
}

type CreateInput struct {
	Name        string `json:"name" jsonschema:"the name, such as 'Mistral Village', 'Jane Smith' or 'Healing Potion'"`
	Description string `json:"description" jsonschema:"a detailed description including everything needed to describe it"`
}

type UpdateInput struct {
	ID          int64  `json:"id" jsonschema:"id of the record to update"`
	Name        string `json:"name,omitempty" jsonschema:"the new name, omit to keep the current one"`
	Description string `json:"description,omitempty" jsonschema:"the new full description, omit to keep the current one"`
}

type UpdatePlayerInput struct {
	Name        string `json:"name,omitempty" jsonschema:"the player's new name, omit to keep the current one"`
	Description string `json:"description,omitempty" jsonschema:"the player's new full description, omit to keep the current one"`
}

type MergeInput struct {
	ID      int64 `json:"id" jsonschema:"id of the record to keep"`
	OtherID int64 `json:"other_id" jsonschema:"id of the duplicate to fold into it and delete"`
}

type AbsorbInput struct {
	CharacterID int64 `json:"character_id" jsonschema:"id of the character that duplicates a player"`
	PlayerID    int64 `json:"player_id" jsonschema:"id of the player to keep"`
}
