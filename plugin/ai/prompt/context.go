package prompt

// CharacterContext builds the template variables for a character.
func CharacterContext(c *Character) map[string]any {
	return map[string]any{
		"char":             c.Name,
		"persona":          c.Persona,
		"scenario":         c.WorldScenario,
		"greeting":         c.Greeting,
		"example_dialogue": c.ExampleDialogue,
	}
}

// UserContext builds the template variables that describe the current user.
// An empty name renders as "Guest".
func UserContext(userName string, isOwner bool) map[string]any {
	if userName == "" {
		userName = "Guest"
	}
	return map[string]any{
		"user":     userName,
		"is_owner": isOwner,
	}
}

// Merge returns a new map holding every key of the inputs; later maps win.
func Merge(maps ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
