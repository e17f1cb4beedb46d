package model

// Anchor describes an insertion point as two structural halves. The relocated
// block is placed between the text matched by Before and the text matched by After.
type Anchor struct {
	Before []string `yaml:"before" toml:"before"`
	After  []string `yaml:"after" toml:"after"`
}

// Target is the fixed configuration for one relocation.
type Target struct {
	Name string `yaml:"name" toml:"name"`
	// Path of the document, relative to the lookup directory.
	Path string `yaml:"path" toml:"path"`
	// Fragment is the structural pattern of the block to move, one literal line per entry.
	Fragment []string `yaml:"fragment" toml:"fragment"`
	Anchor   Anchor   `yaml:"anchor" toml:"anchor"`
	// Condition is the guard identifier of the `{cond && (...)}` block. Only the
	// tree engine uses it; it is derived from Fragment when empty.
	Condition string `yaml:"condition" toml:"condition"`

	Indent      string `yaml:"indent" toml:"indent"`
	IndentWidth int    `yaml:"indent_width" toml:"indent_width"`
	IndentUnit  string `yaml:"indent_unit" toml:"indent_unit"`
	Annotation  string `yaml:"annotation" toml:"annotation"`

	SuccessMessage  string `yaml:"success_message" toml:"success_message"`
	NotFoundMessage string `yaml:"not_found_message" toml:"not_found_message"`
}

// Fragment is an exact span of a document.
type Fragment struct {
	Text  string
	Start int
	End   int
}

// Relocation is the in-memory result of moving a fragment.
type Relocation struct {
	Content  string
	Fragment Fragment
	// Removed counts the occurrences of the fragment text deleted from the document.
	Removed int
	// Inserted is 1 when the anchor matched, 0 when the block was dropped.
	Inserted int
}

// Status is the outcome category of a run.
type Status int

const (
	StatusNothing Status = iota
	StatusMoved
	StatusNotFound
	StatusDryRun
	StatusBuffered
	StatusUndone
	StatusRedone
)

func (s Status) String() string {
	switch s {
	case StatusMoved:
		return "moved"
	case StatusNotFound:
		return "not-found"
	case StatusDryRun:
		return "dry-run"
	case StatusBuffered:
		return "buffered"
	case StatusUndone:
		return "undone"
	case StatusRedone:
		return "redone"
	default:
		return "nothing"
	}
}

// Summary holds the results of an operation for display.
type Summary struct {
	Path     string
	Status   Status
	Message  string
	Diff     string
	Removed  int
	Inserted int
}
