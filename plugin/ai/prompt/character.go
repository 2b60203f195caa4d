// Package prompt turns a character definition and global memories into an
// assembled prompt that cached chat clients reuse for every turn.
package prompt

import (
	"context"
)

// Character is the persona driving prompt assembly for one characterID.
type Character struct {
	ID              string
	Name            string
	Persona         string
	WorldScenario   string
	Greeting        string
	ExampleDialogue string
}

// CharacterRepository looks characters up by id.
// It returns (nil, nil) when no character has the id.
type CharacterRepository interface {
	GetCharacter(ctx context.Context, id string) (*Character, error)
}
