// Package sections decides how section, anchor and document ids are
// requested from the placeholder arena.
//
// Two numbering schemes exist. Documents below version 1.6 use the legacy
// scheme, which builds dotted ids eagerly from a flat qualified-id string.
// From 1.6 on, each section is a child placeholder of the innermost open
// section and its full id is only spliced together when the arena finishes.
// The scheme is chosen once per document root and never changes.
package sections

import (
	"strings"

	"github.com/aledsdavies/quire/core/config"
	"github.com/aledsdavies/quire/core/ids"
	"github.com/aledsdavies/quire/core/invariant"
)

// Version thresholds.
const (
	// ModernVersion is the first version numbered with child placeholders.
	ModernVersion config.Version = 106
	// QualifiedVersion is the first version whose legacy ids include the
	// enclosing sections. Older documents keep the historical short form.
	QualifiedVersion config.Version = 103
)

// Kind selects the numbering scheme.
type Kind int

const (
	KindLegacy Kind = iota
	KindModern
)

func (k Kind) String() string {
	switch k {
	case KindLegacy:
		return "legacy"
	case KindModern:
		return "modern"
	default:
		return "unknown"
	}
}

// KindFor returns the numbering scheme for a compatibility version.
func KindFor(v config.Version) Kind {
	if v < ModernVersion {
		return KindLegacy
	}
	return KindModern
}

// Policy is the numbering state of one document root. Its kind is fixed at
// construction; only the fields belonging to that kind are used.
type Policy struct {
	kind    Kind
	version config.Version
	level   int
	parent  *Policy

	// Legacy state.
	docID       string
	sectionID   string // last opened section, not reverted on close
	qualifiedID string
	docIDStack  []string

	// Modern state.
	current ids.Ref // innermost open section, NoRef before the doc info
	depth   int     // nested files without their own doc info
}

func newPolicy(v config.Version) *Policy {
	return &Policy{
		kind:    KindFor(v),
		version: v,
		current: ids.NoRef,
	}
}

// Kind returns the numbering scheme.
func (p *Policy) Kind() Kind { return p.kind }

// Version returns the compatibility version the policy was built for.
func (p *Policy) Version() config.Version { return p.version }

// Level returns the section level: 0 before the doc info, 1 inside the
// document, plus one per open section.
func (p *Policy) Level() int { return p.level }

// startFile handles a newly entered file. A file with its own doc info (or,
// for modern documents, an include with an explicit id) starts a new
// document root, returned as child. Otherwise the file continues the current
// root and child is nil.
func (p *Policy) startFile(arena *ids.Arena, haveDocInfo bool, v config.Version,
	includeDocID, id, title string) (child *Policy, docID, placeholder string) {

	switch p.kind {
	case KindLegacy:
		docID = firstNonEmpty(id, includeDocID, MakeIdentifier(title))
		category := ids.CategoryGeneratedDoc
		if id != "" || includeDocID != "" {
			category = ids.CategoryExplicit
		}
		if !haveDocInfo {
			p.docIDStack = append(p.docIDStack, p.docID)
			p.docID = docID
			return nil, docID, ""
		}
		child = newPolicy(v)
		return child, docID, child.docInfo(arena, docID, category)

	case KindModern:
		if !haveDocInfo && includeDocID == "" {
			p.depth++
			return nil, "", ""
		}
		// The include's id outranks the file's own.
		docID = firstNonEmpty(includeDocID, id, MakeIdentifier(title))
		category := ids.CategoryGeneratedDoc
		if id != "" || includeDocID != "" {
			category = ids.CategoryExplicit
		}
		child = newPolicy(v)
		return child, docID, child.docInfo(arena, docID, category)
	}
	panic("unreachable")
}

// docInfo opens the document root.
func (p *Policy) docInfo(arena *ids.Arena, id string, category ids.Category) string {
	if p.kind == KindModern {
		return p.beginSection(arena, id, category)
	}
	p.docID = id
	p.level++
	return ids.Token(arena.AllocateVerbatim(id, category))
}

// endFile closes the current file and reports whether it was the file that
// opened this root.
func (p *Policy) endFile(arena *ids.Arena) bool {
	switch p.kind {
	case KindLegacy:
		if len(p.docIDStack) == 0 {
			return true
		}
		p.docID = p.docIDStack[len(p.docIDStack)-1]
		p.docIDStack = p.docIDStack[:len(p.docIDStack)-1]
		return false

	case KindModern:
		if p.depth > 0 {
			p.depth--
			return false
		}
		p.endSection(arena)
		invariant.Postcondition(p.current == ids.NoRef,
			"document root closed with section %d still open", p.current)
		return true
	}
	panic("unreachable")
}

// addID requests an id qualified by the enclosing sections.
func (p *Policy) addID(arena *ids.Arena, id string, category ids.Category) string {
	if p.kind == KindModern {
		return ids.Token(arena.Allocate(id, category, p.current))
	}
	return ids.Token(arena.AllocateVerbatim(joinIDs(p.docID, p.qualifiedID, id), category))
}

// oldStyleID is addID, except that legacy documents older than 1.3 qualify
// the id by the most recently opened section only.
func (p *Policy) oldStyleID(arena *ids.Arena, id string, category ids.Category) string {
	if p.kind == KindLegacy && p.version < QualifiedVersion {
		return ids.Token(arena.AllocateVerbatim(p.sectionID+"."+id, category))
	}
	return p.addID(arena, id, category)
}

func (p *Policy) beginSection(arena *ids.Arena, id string, category ids.Category) string {
	p.level++

	if p.kind == KindModern {
		p.current = arena.Allocate(id, category, p.current)
		return ids.Token(p.current)
	}

	if p.level > 2 {
		p.qualifiedID += "."
	}
	p.qualifiedID += id
	p.sectionID = id

	if p.version < QualifiedVersion {
		return ids.Token(arena.AllocateVerbatim(p.docID+"."+id, category))
	}
	return ids.Token(arena.AllocateVerbatim(p.docID+"."+p.qualifiedID, category))
}

func (p *Policy) endSection(arena *ids.Arena) {
	p.level--

	if p.kind == KindModern {
		p.current = arena.Parent(p.current)
		return
	}

	// sectionID keeps the closed section's id; old documents relied on it.
	if p.level == 1 {
		p.qualifiedID = ""
		return
	}
	if n := strings.LastIndexByte(p.qualifiedID, '.'); n >= 0 {
		p.qualifiedID = p.qualifiedID[:n]
	}
}

// joinIDs joins the non-empty parts with dots.
func joinIDs(parts ...string) string {
	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// MakeIdentifier derives an id from a title: ASCII letters are lower-cased,
// digits kept and every other byte becomes '_'.
func MakeIdentifier(title string) string {
	b := make([]byte, len(title))
	for i := 0; i < len(title); i++ {
		c := title[i]
		switch {
		case c >= 'A' && c <= 'Z':
			b[i] = c + ('a' - 'A')
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b[i] = c
		default:
			b[i] = '_'
		}
	}
	return string(b)
}
