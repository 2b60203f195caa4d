package store

// GlobalMemory is cross-session strategy text shared by every character.
type GlobalMemory struct {
	ID        int64
	Content   string
	CreatedTs int64
	UpdatedTs int64
}

type FindGlobalMemory struct {
	ID    *int64
	Limit int
}

type UpdateGlobalMemory struct {
	ID        int64
	Content   string
	UpdatedTs int64
}

type DeleteGlobalMemory struct {
	ID int64
}
