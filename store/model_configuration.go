package store

// ModelConfiguration is a provider/settings row. At most one row is enabled.
type ModelConfiguration struct {
	ID       int32
	Name     string
	Provider string
	// Settings is a JSON document (model, base url, api key, temperature, max tokens).
	Settings  string
	Enabled   bool
	CreatedTs int64
	UpdatedTs int64
}

type FindModelConfiguration struct {
	ID      *int32
	Enabled *bool
}
