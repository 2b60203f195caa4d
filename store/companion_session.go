package store

// CompanionSession is the durable metadata row of a companion session.
// Guest sessions get a mirror row so listing works while they are alive.
type CompanionSession struct {
	ID            string
	CharacterID   string
	Mode          string
	IsOwner       bool
	ToolsEnabled  bool
	ToolNames     []string
	MemoryEnabled bool
	Archived      bool
	ArchiveReason string
	// Timestamps are unix milliseconds.
	CreatedTs    int64
	LastActiveTs int64
}

type FindCompanionSession struct {
	ID          *string
	CharacterID *string
	IsOwner     *bool
	Archived    *bool
	Limit       int
}

type UpdateCompanionSession struct {
	ID            string
	LastActiveTs  *int64
	ToolsEnabled  *bool
	ToolNames     *[]string
	MemoryEnabled *bool
	Archived      *bool
	ArchiveReason *string
}

// ArchiveStaleSessions archives non-archived rows of one owner type whose last activity is before BeforeTs.
type ArchiveStaleSessions struct {
	IsOwner  bool
	BeforeTs int64
	Reason   string
}
