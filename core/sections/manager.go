package sections

import (
	"github.com/aledsdavies/quire/core/config"
	"github.com/aledsdavies/quire/core/ids"
	"github.com/aledsdavies/quire/core/invariant"
)

// Manager routes id requests to the policy of the innermost document root.
// Nested documents (files with their own doc info) push a new policy, which
// is popped when that file ends.
type Manager struct {
	arena   *ids.Arena
	current *Policy
}

// NewManager creates a manager that allocates from arena. Until a file with
// doc info is started the legacy policy applies.
func NewManager(arena *ids.Arena) *Manager {
	invariant.NotNil(arena, "arena")
	return &Manager{
		arena:   arena,
		current: newPolicy(0),
	}
}

// Arena returns the placeholder arena the manager allocates from.
func (m *Manager) Arena() *ids.Arena {
	return m.arena
}

// StartFileInfo is the result of starting a file that has doc info.
type StartFileInfo struct {
	DocID       string // the id the document root asked for
	Placeholder string // token for the root element's id attribute
}

// StartFile enters a file without doc info. It continues the current
// document under the current compatibility version; a modern include with an
// explicit id still opens a new root.
func (m *Manager) StartFile(includeDocID, id, title string) {
	child, _, _ := m.current.startFile(m.arena, false, m.current.version, includeDocID, id, title)
	m.push(child)
}

// StartFileWithDocInfo enters a file with its own doc info, opening a new
// document root numbered according to version.
func (m *Manager) StartFileWithDocInfo(version config.Version, includeDocID, id, title string) StartFileInfo {
	child, docID, placeholder := m.current.startFile(m.arena, true, version, includeDocID, id, title)
	m.push(child)
	return StartFileInfo{DocID: docID, Placeholder: placeholder}
}

func (m *Manager) push(child *Policy) {
	if child == nil {
		return
	}
	child.parent = m.current
	m.current = child
}

// EndFile leaves the current file, restoring the enclosing document root if
// this file opened the current one.
func (m *Manager) EndFile() {
	if m.current.endFile(m.arena) && m.current.parent != nil {
		m.current = m.current.parent
	}
}

// BeginSection opens a section and returns the token for its id.
func (m *Manager) BeginSection(id string, category ids.Category) string {
	invariant.Precondition(m.current.level > 0, "begin_section %q before doc info", id)
	return m.current.beginSection(m.arena, id, category)
}

// EndSection closes the innermost section. Callers check SectionLevel first;
// the document root itself is closed by EndFile.
func (m *Manager) EndSection() {
	invariant.Precondition(m.current.level > 1, "end_section without open section")
	m.current.endSection(m.arena)
}

// AddID requests an id qualified by the open sections, for anchors and other
// elements that live inside a section.
func (m *Manager) AddID(id string, category ids.Category) string {
	return m.current.addID(m.arena, id, category)
}

// OldStyleID is AddID with the pre-1.3 short qualification for legacy
// documents.
func (m *Manager) OldStyleID(id string, category ids.Category) string {
	return m.current.oldStyleID(m.arena, id, category)
}

// AddAnchor requests an unqualified id.
func (m *Manager) AddAnchor(id string, category ids.Category) string {
	return ids.Token(m.arena.AllocateVerbatim(id, category))
}

// SectionLevel returns the current policy's level.
func (m *Manager) SectionLevel() int {
	return m.current.level
}

// CompatibilityVersion returns the version of the innermost document root.
func (m *Manager) CompatibilityVersion() config.Version {
	return m.current.version
}

// Kind returns the numbering scheme of the innermost document root.
func (m *Manager) Kind() Kind {
	return m.current.kind
}

// Depth returns the number of document roots entered and not yet left.
func (m *Manager) Depth() int {
	n := 0
	for p := m.current; p.parent != nil; p = p.parent {
		n++
	}
	return n
}

// ReplacePlaceholders resolves every id referenced in xml and substitutes
// the final ids. All nested documents must have been ended.
func (m *Manager) ReplacePlaceholders(xml string) string {
	invariant.Precondition(m.current.parent == nil, "replace placeholders with %d document(s) still open", m.Depth())
	return m.arena.Finish(xml)
}
