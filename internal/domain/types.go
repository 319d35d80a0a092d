package domain

// Page is a single page of the policy corpus as loaded from disk.
type Page struct {
	SourceID string
	Number   int
	Content  string
}

// Chunk is a bounded span of corpus text prepared for embedding and retrieval.
// Chunks are created once during indexing and immutable thereafter.
type Chunk struct {
	ID       string
	SourceID string
	Text     string
	Index    int
	Page     int
}

// SearchResult is a matching chunk with a similarity score, higher is closer.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// IndexMeta describes the embedding space a persisted index was built in.
// Retrieval must use the same embedder name and dimension that built the
// index; anything else silently degrades relevance, so it is checked.
type IndexMeta struct {
	Embedder  string
	Dimension int
	Corpus    string
	Chunks    int
}

// Clearance is the access level encoded in a profile. It gates which intent
// categories a session may be answered about.
type Clearance int

const (
	ClearanceStandard Clearance = iota
	ClearanceElevated
	ClearanceRestricted
)

// ParseClearance maps the directory's string form to a Clearance level.
// Unknown values fall back to standard, never to a higher level.
func ParseClearance(s string) Clearance {
	switch s {
	case "elevated":
		return ClearanceElevated
	case "restricted":
		return ClearanceRestricted
	default:
		return ClearanceStandard
	}
}

func (c Clearance) String() string {
	switch c {
	case ClearanceElevated:
		return "elevated"
	case ClearanceRestricted:
		return "restricted"
	default:
		return "standard"
	}
}

// Field is one labeled profile attribute. Profiles render as one field per
// line, never merged into prose.
type Field struct {
	Label string
	Value string
}

// Profile is the structured employee record scoped to one authenticated
// session. It is read from the directory at login and never written back.
type Profile struct {
	EmployeeCode  string
	Name          string
	Designation   string
	Department    string
	SubDepartment string
	Manager       string
	HRBP          string
	Location      string
	Shift         string
	JoinDate      string
	Clearance     Clearance

	LeaveBalance int
	LeaveTaken   int
	Compensation []Field
	Goals        []string
	Assets       []string
	OpenTickets  []string
}

// Fields returns the identity and employment attributes as ordered
// label/value pairs, skipping empty values. No field is ever invented.
func (p Profile) Fields() []Field {
	all := []Field{
		{"Employee ID", p.EmployeeCode},
		{"Name", p.Name},
		{"Designation", p.Designation},
		{"Department", p.Department},
		{"Sub-Department", p.SubDepartment},
		{"Reporting Manager", p.Manager},
		{"HR Business Partner", p.HRBP},
		{"Location", p.Location},
		{"Shift", p.Shift},
		{"Joined", p.JoinDate},
	}
	out := make([]Field, 0, len(all))
	for _, f := range all {
		if f.Value != "" {
			out = append(out, f)
		}
	}
	return out
}

// Role tags who authored a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one exchange entry in a conversation history.
type Turn struct {
	Role    Role
	Content string
}

// PromptContext is the fully assembled input for one generation: the
// behavioral instructions with profile and policy slots already filled,
// plus the rendered history window and the current user input. Profile and
// policy text occupy distinct slots and must never be conflated.
type PromptContext struct {
	System  string
	History []Turn
	Input   string
}

// QuickAction is a predefined canned query triggered by a UI shortcut.
// Triggering one is equivalent to typing the query manually.
type QuickAction struct {
	Label string
	Query string
}
