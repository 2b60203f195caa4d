package store

type Character struct {
	ID              string
	Name            string
	Persona         string
	WorldScenario   string
	Greeting        string
	ExampleDialogue string
	CreatedTs       int64
	UpdatedTs       int64
}
