package layout

// Accessor reads and writes sibling fields while a constraint hook runs.
// During encode and assignment it is the *Record itself. During decode it
// is a partial view holding the fields decoded so far.
type Accessor interface {
	Get(name string) Value
	Set(name string, v Value) error
}

// Stash keys shared between constraints and field kinds.
const (
	StashLength    = "length"
	StashMaxLength = "max_length"
)

// Context is the per-field, per-operation state handed to every hook.
// Hooks may stash integers for later constraints and the field kind, and
// OnAssign hooks may replace Value.
type Context struct {
	Record Accessor
	Field  *Field
	Buf    []byte
	Offset int
	Value  Value

	stash map[string]int
}

// Stash records n under key for the rest of this operation.
func (c *Context) Stash(key string, n int) {
	if c.stash == nil {
		c.stash = make(map[string]int, 2)
	}
	c.stash[key] = n
}

// Stashed returns a value recorded with Stash.
func (c *Context) Stashed(key string) (int, bool) {
	n, ok := c.stash[key]
	return n, ok
}

// partial is the decode-time view of a record under construction.
type partial map[string]Value

func (p partial) Get(name string) Value { return p[name] }

func (p partial) Set(name string, v Value) error {
	p[name] = v
	return nil
}
