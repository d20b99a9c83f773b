package sections_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/quire/core/config"
	"github.com/aledsdavies/quire/core/ids"
	"github.com/aledsdavies/quire/core/sections"
)

// resolve finishes tokens and returns their final ids in order.
func resolve(t *testing.T, m *sections.Manager, tokens ...string) []string {
	t.Helper()
	var b strings.Builder
	for _, tok := range tokens {
		fmt.Fprintf(&b, `<x id="%s"/>`, tok)
	}
	out := m.ReplacePlaceholders(b.String())

	var got []string
	for _, part := range strings.Split(out, `<x id="`)[1:] {
		end := strings.IndexByte(part, '"')
		require.GreaterOrEqual(t, end, 0)
		got = append(got, part[:end])
	}
	return got
}

func TestModernSectionsAreChildren(t *testing.T) {
	m := sections.NewManager(ids.NewArena(0))

	info := m.StartFileWithDocInfo(106, "", "", "My Doc")
	assert.Equal(t, "my_doc", info.DocID)
	assert.Equal(t, sections.KindModern, m.Kind())
	assert.Equal(t, 1, m.SectionLevel())

	intro := m.BeginSection("intro", ids.CategoryExplicit)
	details := m.AddID("details", ids.CategoryGenerated)
	assert.Equal(t, 2, m.SectionLevel())
	m.EndSection()

	first := m.BeginSection("overview", ids.CategoryGenerated)
	m.EndSection()
	second := m.BeginSection("overview", ids.CategoryGenerated)
	m.EndSection()

	m.EndFile()
	assert.Equal(t, 0, m.Depth())

	got := resolve(t, m, info.Placeholder, intro, details, first, second)
	want := []string{"my_doc", "my_doc.intro", "my_doc.intro.details", "my_doc.overview", "my_doc.overview0"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("final ids mismatch (-want +got):\n%s", diff)
	}
}

func TestModernIncludeWithIDOpensRoot(t *testing.T) {
	m := sections.NewManager(ids.NewArena(0))
	root := m.StartFileWithDocInfo(106, "", "book", "Book")
	sec := m.BeginSection("chapter", ids.CategoryExplicit)

	// A plain include continues the current document.
	m.StartFile("", "", "")
	assert.Equal(t, 1, m.Depth())
	inner := m.BeginSection("inner", ids.CategoryExplicit)
	m.EndSection()
	m.EndFile()
	assert.Equal(t, 1, m.Depth())

	// An include with an id starts a document root of its own.
	m.StartFile("part", "", "")
	assert.Equal(t, 2, m.Depth())
	part := m.BeginSection("s", ids.CategoryExplicit)
	m.EndSection()
	m.EndFile()
	assert.Equal(t, 1, m.Depth())

	m.EndSection()
	m.EndFile()

	got := resolve(t, m, root.Placeholder, sec, inner, part)
	assert.Equal(t, []string{"book", "book.chapter", "book.chapter.inner", "part.s"}, got)
}

func TestLegacyQualifiedIDs(t *testing.T) {
	m := sections.NewManager(ids.NewArena(0))
	root := m.StartFileWithDocInfo(105, "", "doc", "Doc")
	assert.Equal(t, sections.KindLegacy, m.Kind())

	a := m.BeginSection("a", ids.CategoryGenerated)
	b := m.BeginSection("b", ids.CategoryGenerated)
	assert.Equal(t, 3, m.SectionLevel())
	x := m.AddID("x", ids.CategoryGenerated)
	m.EndSection()
	y := m.OldStyleID("y", ids.CategoryGenerated)
	m.EndSection()
	z := m.AddID("z", ids.CategoryGenerated)
	m.EndFile()

	got := resolve(t, m, root.Placeholder, a, b, x, y, z)
	assert.Equal(t, []string{"doc", "doc.a", "doc.a.b", "doc.a.b.x", "doc.a.y", "doc.z"}, got)
}

func TestLegacyShortIDsBeforeQualifiedVersion(t *testing.T) {
	m := sections.NewManager(ids.NewArena(0))
	root := m.StartFileWithDocInfo(101, "", "doc", "Doc")

	a := m.BeginSection("a", ids.CategoryGenerated)
	b := m.BeginSection("b", ids.CategoryGenerated)
	m.EndSection()
	// The closed section is still the "current" one for old style ids.
	y := m.OldStyleID("y", ids.CategoryGenerated)
	m.EndSection()
	m.EndFile()

	got := resolve(t, m, root.Placeholder, a, b, y)
	assert.Equal(t, []string{"doc", "doc.a", "doc.b", "b.y"}, got)
}

func TestLegacyIDsKeepSpelling(t *testing.T) {
	m := sections.NewManager(ids.NewArena(0))
	root := m.StartFileWithDocInfo(105, "", "doc", "Doc")
	first := m.BeginSection("a__b", ids.CategoryGenerated)
	m.EndSection()
	second := m.BeginSection("a__b", ids.CategoryGenerated)
	m.EndSection()
	m.EndFile()

	got := resolve(t, m, root.Placeholder, first, second)
	assert.Equal(t, []string{"doc", "doc.a__b", "doc.a_b0"}, got)
}

func TestLegacyIncludeSwapsDocID(t *testing.T) {
	m := sections.NewManager(ids.NewArena(0))
	root := m.StartFileWithDocInfo(105, "", "doc", "Doc")

	m.StartFile("inc", "", "")
	inside := m.AddID("y", ids.CategoryGenerated)
	m.EndFile()
	outside := m.AddID("z", ids.CategoryGenerated)
	m.EndFile()

	got := resolve(t, m, root.Placeholder, inside, outside)
	assert.Equal(t, []string{"doc", "inc.y", "doc.z"}, got)
}

func TestNestedDocumentSwitchesPolicy(t *testing.T) {
	m := sections.NewManager(ids.NewArena(0))
	assert.Equal(t, config.Version(0), m.CompatibilityVersion())

	m.StartFileWithDocInfo(105, "", "outer", "")
	assert.Equal(t, sections.KindLegacy, m.Kind())

	m.StartFileWithDocInfo(106, "", "", "Inner Doc")
	assert.Equal(t, sections.KindModern, m.Kind())
	assert.Equal(t, config.Version(106), m.CompatibilityVersion())
	assert.Equal(t, 2, m.Depth())

	m.EndFile()
	assert.Equal(t, sections.KindLegacy, m.Kind())
	assert.Equal(t, config.Version(105), m.CompatibilityVersion())

	m.EndFile()
	assert.Equal(t, 0, m.Depth())
}

func TestDocIDPrecedence(t *testing.T) {
	tests := []struct {
		name      string
		version   config.Version
		includeID string
		id        string
		title     string
		want      string
	}{
		{name: "legacy own id first", version: 105, includeID: "inc", id: "own", title: "T", want: "own"},
		{name: "legacy include id", version: 105, includeID: "inc", title: "T", want: "inc"},
		{name: "modern include id first", version: 106, includeID: "inc", id: "own", title: "T", want: "inc"},
		{name: "title", version: 106, title: "Quick Start 2", want: "quick_start_2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := sections.NewManager(ids.NewArena(0))
			// The outer policy decides the precedence.
			m.StartFileWithDocInfo(tt.version, "", "outer", "")
			info := m.StartFileWithDocInfo(tt.version, tt.includeID, tt.id, tt.title)
			assert.Equal(t, tt.want, info.DocID)
		})
	}
}

func TestMakeIdentifier(t *testing.T) {
	tests := map[string]string{
		"Overview":         "overview",
		"Quick Start 2":    "quick_start_2",
		"C++ & You":        "c_____you",
		"":                 "",
		"café":        "caf__",
		"already_an_id_42": "already_an_id_42",
	}
	for in, want := range tests {
		assert.Equal(t, want, sections.MakeIdentifier(in), "MakeIdentifier(%q)", in)
	}
}

func TestKindFor(t *testing.T) {
	assert.Equal(t, sections.KindLegacy, sections.KindFor(0))
	assert.Equal(t, sections.KindLegacy, sections.KindFor(105))
	assert.Equal(t, sections.KindModern, sections.KindFor(106))
	assert.Equal(t, sections.KindModern, sections.KindFor(107))
	assert.Equal(t, "modern", sections.KindModern.String())
}

func TestContractViolations(t *testing.T) {
	t.Run("section before doc info", func(t *testing.T) {
		m := sections.NewManager(ids.NewArena(0))
		assert.Panics(t, func() { m.BeginSection("a", ids.CategoryExplicit) })
	})

	t.Run("end section at document level", func(t *testing.T) {
		m := sections.NewManager(ids.NewArena(0))
		m.StartFileWithDocInfo(106, "", "doc", "")
		assert.Panics(t, func() { m.EndSection() })
	})

	t.Run("replace with open document", func(t *testing.T) {
		m := sections.NewManager(ids.NewArena(0))
		m.StartFileWithDocInfo(106, "", "doc", "")
		assert.Panics(t, func() { m.ReplacePlaceholders("") })
	})
}
