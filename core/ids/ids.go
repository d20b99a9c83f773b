// Package ids resolves requested document identifiers into a collision-free
// namespace.
//
// Callers allocate placeholders while the document is produced and embed the
// returned tokens ($0, $1, ...) in id-bearing attributes of the output. Once
// the whole output exists, Finish decides every final id and rewrites the
// tokens. Placeholders are stored in an arena and addressed by index; they
// are never removed.
package ids

import (
	"strconv"
	"strings"

	"github.com/aledsdavies/quire/core/invariant"
)

// DefaultMaxSize is the default cap on generated ids, counted from the last
// dot.
const DefaultMaxSize = 32

// Ref is the stable index of a placeholder in its arena.
type Ref int

// NoRef is the absent placeholder, used as "no parent".
const NoRef Ref = -1

// Category is the priority of an id request. When several placeholders want
// the same id, the highest category wins the unsuffixed form.
type Category int

const (
	CategoryNumbered     Category = iota // auto-assigned, never wins outright
	CategoryGenerated                    // derived from a section or heading title
	CategoryGeneratedDoc                 // derived from the document title
	CategoryExplicit                     // written by the author
)

func (c Category) String() string {
	switch c {
	case CategoryNumbered:
		return "numbered"
	case CategoryGenerated:
		return "generated"
	case CategoryGeneratedDoc:
		return "generated_doc"
	case CategoryExplicit:
		return "explicit"
	default:
		return "unknown"
	}
}

// State is a placeholder's position in the finishing pass. States only move
// forward.
type State int

const (
	StateChild      State = iota // waiting for the parent's final id
	StateUnresolved              // full id known, not yet registered
	StateResolved                // registered, may still be renamed
	StateGenerated               // final
)

func (s State) String() string {
	switch s {
	case StateChild:
		return "child"
	case StateUnresolved:
		return "unresolved"
	case StateResolved:
		return "resolved"
	case StateGenerated:
		return "generated"
	default:
		return "unknown"
	}
}

type placeholder struct {
	index     int
	state     State
	id        string // the id so far
	requested string // the id as first requested
	parent    Ref    // only when state == StateChild
	category  Category
	level     int // 0 = doc id, 1 = directly in the doc id, ...
	// order is the rank in the output text, assigned by Finish. It can
	// differ from allocation order: nested content may be emitted before
	// the title that allocated its parent.
	order     int
	data      int  // bookkeeping record, only when state == StateResolved
	normalize bool // collapse separators and cap length when resolving
}

func (p *placeholder) consistent() bool {
	return (p.state == StateChild) == (p.parent != NoRef) &&
		(p.state == StateResolved) == (p.data >= 0)
}

// Arena owns every placeholder of one compilation.
type Arena struct {
	maxSize      int
	placeholders []placeholder
	orderCount   int
}

// NewArena creates an empty arena. maxSize <= 0 selects DefaultMaxSize.
func NewArena(maxSize int) *Arena {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Arena{maxSize: maxSize}
}

// MaxSize returns the generated id length cap.
func (a *Arena) MaxSize() int {
	return a.maxSize
}

// Len returns the number of placeholders allocated so far.
func (a *Arena) Len() int {
	return len(a.placeholders)
}

// Allocate requests id. With a parent the placeholder waits for the parent's
// final id and becomes "<parent>.<id>". Ids whose category is not explicit
// are normalized when resolved.
func (a *Arena) Allocate(id string, category Category, parent Ref) Ref {
	return a.add(id, category, parent, category != CategoryExplicit)
}

// AllocateVerbatim requests id without normalization. Legacy section ids are
// allocated this way so their historical spelling is kept.
func (a *Arena) AllocateVerbatim(id string, category Category) Ref {
	return a.add(id, category, NoRef, false)
}

func (a *Arena) add(id string, category Category, parent Ref, normalize bool) Ref {
	level := strings.Count(id, ".")
	state := StateUnresolved
	if parent != NoRef {
		level += a.get(parent).level + 1
		state = StateChild
	}

	a.placeholders = append(a.placeholders, placeholder{
		index:     len(a.placeholders),
		state:     state,
		id:        id,
		requested: id,
		parent:    parent,
		category:  category,
		level:     level,
		data:      -1,
		normalize: normalize,
	})
	return Ref(len(a.placeholders) - 1)
}

func (a *Arena) get(ref Ref) *placeholder {
	invariant.ValidIndex(int(ref), len(a.placeholders), "placeholder")
	return &a.placeholders[ref]
}

// Token returns the inline token for ref.
func Token(ref Ref) string {
	return "$" + strconv.Itoa(int(ref))
}

// Token returns the inline token for ref, checking it belongs to a.
func (a *Arena) Token(ref Ref) string {
	a.get(ref)
	return Token(ref)
}

// Lookup parses an attribute value as a placeholder token. Values that are
// not tokens return false. A token naming an index this arena never handed
// out means the producer and the arena disagree, and panics.
func (a *Arena) Lookup(value string) (Ref, bool) {
	if len(value) <= 1 || value[0] != '$' {
		return NoRef, false
	}
	n, err := strconv.Atoi(value[1:])
	if err != nil {
		return NoRef, false
	}
	invariant.ValidIndex(n, len(a.placeholders), "placeholder token "+value)
	return Ref(n), true
}

// Parent returns the parent of a placeholder that is still waiting for it.
func (a *Arena) Parent(ref Ref) Ref {
	return a.get(ref).parent
}

// Level returns the nesting level of ref.
func (a *Arena) Level(ref Ref) int {
	return a.get(ref).level
}

// State returns the current state of ref.
func (a *Arena) State(ref Ref) State {
	return a.get(ref).state
}

// Category returns the category of ref.
func (a *Arena) Category(ref Ref) Category {
	return a.get(ref).category
}

// Final returns the final id of ref once Finish has generated it.
func (a *Arena) Final(ref Ref) (string, bool) {
	p := a.get(ref)
	if p.state != StateGenerated {
		return "", false
	}
	return p.id, true
}
