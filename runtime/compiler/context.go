package compiler

import (
	"github.com/aledsdavies/quire/core/errors"
	"github.com/aledsdavies/quire/core/invariant"
	"github.com/aledsdavies/quire/core/symbols"
	"github.com/aledsdavies/quire/runtime/files"
)

// Template is a stored template definition. Body is owned by whatever
// produced the definition (the event replayer stores its events there).
type Template struct {
	Name string
	File *files.File // file the template was defined in
	Body any
}

// Context is the live compilation state. Scopes swap values in and out of
// it; nothing else holds a copy.
type Context struct {
	File             *files.File
	Filename         string // display name, the file's path
	FilenameRelative string // path relative to the main file's directory
	DocID            string
	DocType          string
	SourceMode       string

	Macros    *symbols.Table[string]
	Templates *symbols.Table[Template]

	// Section counters as seen by the markup. MinSectionLevel stops a
	// template or nested document from closing sections it did not open.
	SectionLevel       int
	MinSectionLevel    int
	SectionID          string
	QualifiedSectionID string

	TemplateDepth int
}

// ScopeFlags selects which symbol tables a file scope isolates.
type ScopeFlags int

const (
	ScopeMacros ScopeFlags = 1 << iota
	ScopeTemplates

	ScopeNone ScopeFlags = 0
	ScopeAll             = ScopeMacros | ScopeTemplates
)

// fileSnapshot is the state a file scope restores.
type fileSnapshot struct {
	flags            ScopeFlags
	file             *files.File
	filename         string
	filenameRelative string
	docID            string
	docType          string
	sourceMode       string
}

// templateSnapshot is the extra state a template scope restores.
type templateSnapshot struct {
	sectionLevel       int
	minSectionLevel    int
	sectionID          string
	qualifiedSectionID string
	idsLevel           int // section policy level at entry
}

type frame struct {
	file     fileSnapshot
	template *templateSnapshot
}

// PushFileScope saves the current file, names, doc id and source mode, and
// with the matching flags starts new macro and template scopes.
func (c *Compiler) PushFileScope(flags ScopeFlags) {
	c.pushFrame(flags, nil)
}

func (c *Compiler) pushFrame(flags ScopeFlags, tmpl *templateSnapshot) {
	ctx := c.ctx
	c.scopes = append(c.scopes, frame{
		file: fileSnapshot{
			flags:            flags,
			file:             ctx.File,
			filename:         ctx.Filename,
			filenameRelative: ctx.FilenameRelative,
			docID:            ctx.DocID,
			docType:          ctx.DocType,
			sourceMode:       ctx.SourceMode,
		},
		template: tmpl,
	})
	if flags&ScopeMacros != 0 {
		ctx.Macros.Save()
	}
	if flags&ScopeTemplates != 0 {
		ctx.Templates.Save()
	}
}

// PopFileScope restores the state saved by the matching PushFileScope.
func (c *Compiler) PopFileScope() {
	invariant.Precondition(len(c.scopes) > 0 && c.scopes[len(c.scopes)-1].template == nil,
		"PopFileScope without a matching file scope")
	c.popFrame()
}

func (c *Compiler) popFrame() frame {
	f := c.scopes[len(c.scopes)-1]
	c.scopes = c.scopes[:len(c.scopes)-1]

	ctx := c.ctx
	s := f.file
	ctx.File, ctx.Filename, ctx.FilenameRelative = s.file, s.filename, s.filenameRelative
	ctx.DocID, ctx.DocType, ctx.SourceMode = s.docID, s.docType, s.sourceMode
	if s.flags&ScopeTemplates != 0 {
		ctx.Templates.Restore()
	}
	if s.flags&ScopeMacros != 0 {
		ctx.Macros.Restore()
	}
	return f
}

// PushTemplateScope enters a template expansion: a full file scope plus the
// section counters and a new output frame. Sections opened outside the
// template cannot be closed inside it. Fails once the expansion depth
// reaches the configured ceiling; nothing is pushed in that case.
func (c *Compiler) PushTemplateScope() error {
	ctx := c.ctx
	if ctx.TemplateDepth >= c.cfg.MaxTemplateDepth {
		return errors.NewTemplateDepthError(ctx.Filename, ctx.TemplateDepth+1, c.cfg.MaxTemplateDepth)
	}

	c.pushFrame(ScopeAll, &templateSnapshot{
		sectionLevel:       ctx.SectionLevel,
		minSectionLevel:    ctx.MinSectionLevel,
		sectionID:          ctx.SectionID,
		qualifiedSectionID: ctx.QualifiedSectionID,
		idsLevel:           c.ids.SectionLevel(),
	})
	ctx.TemplateDepth++
	ctx.MinSectionLevel = ctx.SectionLevel
	c.out.Push()
	return nil
}

// PopTemplateScope leaves a template expansion and returns its output.
// Sections the template left open are closed first, with a warning.
func (c *Compiler) PopTemplateScope() string {
	invariant.Precondition(len(c.scopes) > 0 && c.scopes[len(c.scopes)-1].template != nil,
		"PopTemplateScope without a matching template scope")
	t := c.scopes[len(c.scopes)-1].template

	if c.ids.SectionLevel() > t.idsLevel {
		c.diags.Warn(c.ctx.Filename, 0, "Missing end_section in template")
		for c.ids.SectionLevel() > t.idsLevel {
			c.out.Write("</section>")
			c.ids.EndSection()
		}
	}

	out := c.out.Pop()
	c.popFrame()

	ctx := c.ctx
	ctx.TemplateDepth--
	ctx.SectionLevel, ctx.MinSectionLevel = t.sectionLevel, t.minSectionLevel
	ctx.SectionID, ctx.QualifiedSectionID = t.sectionID, t.qualifiedSectionID
	return out
}

// ScopeDepth returns the number of open file and template scopes.
func (c *Compiler) ScopeDepth() int {
	return len(c.scopes)
}
