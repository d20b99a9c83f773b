package compiler

import (
	"fmt"
	"strings"

	"github.com/aledsdavies/quire/core/config"
	"github.com/aledsdavies/quire/core/ids"
	"github.com/aledsdavies/quire/core/invariant"
	"github.com/aledsdavies/quire/core/sections"
)

// DocInfoMode says how a file's doc info is treated.
type DocInfoMode int

const (
	// DocIgnore continues the enclosing document; the file's doc info only
	// supplies an id, title and version.
	DocIgnore DocInfoMode = iota
	// DocMain opens the top-level document, with the XML prologue.
	DocMain
	// DocNested opens a document inside another one.
	DocNested
)

// DefaultVersion is assumed when a document does not declare a version.
const DefaultVersion config.Version = 101

// Attribute is one doc info attribute in source order.
type Attribute struct {
	Name  string
	Value string
}

// DocInfo is a file's document information block.
type DocInfo struct {
	Type          string // book, article, library, ...
	Title         string
	ID            string
	Version       config.Version // zero when not declared
	Compatibility config.Version // zero when not declared
	Attributes    []Attribute
}

// multiAttributes may appear more than once.
var multiAttributes = map[string]bool{
	"authors":   true,
	"biblioid":  true,
	"category":  true,
	"copyright": true,
}

// libraryAttributes are only meaningful for library documents.
var libraryAttributes = []string{"purpose", "category", "dirname"}

// attr returns the last value given for name.
func (d *DocInfo) attr(name string) (string, bool) {
	for i := len(d.Attributes) - 1; i >= 0; i-- {
		if d.Attributes[i].Name == name {
			return d.Attributes[i].Value, true
		}
	}
	return "", false
}

func (d *DocInfo) attrs(name string) []string {
	var out []string
	for _, a := range d.Attributes {
		if a.Name == name {
			out = append(out, a.Value)
		}
	}
	return out
}

// duplicates lists single-valued attributes given more than once, in order
// of first appearance.
func (d *DocInfo) duplicates() []string {
	count := make(map[string]int)
	var order []string
	for _, a := range d.Attributes {
		if multiAttributes[a.Name] {
			continue
		}
		if count[a.Name] == 0 {
			order = append(order, a.Name)
		}
		count[a.Name]++
	}
	var dups []string
	for _, name := range order {
		if count[name] > 1 {
			dups = append(dups, name)
		}
	}
	return dups
}

type openDoc struct {
	mode            DocInfoMode
	docType         string
	minSectionLevel int
	// ownsRoot is set when the file opened a document root of its own,
	// which DocIgnore files do when included with an id from 1.6 on.
	ownsRoot bool
}

// BeginDocument starts the current file's document. For DocMain and
// DocNested it opens a new document root and writes the root element. A
// DocIgnore file included with an id from 1.6 on also gets its own root,
// but no element.
func (c *Compiler) BeginDocument(mode DocInfoMode, includeDocID string, info DocInfo) {
	ctx := c.ctx
	file := ctx.Filename

	if dups := info.duplicates(); len(dups) > 0 {
		label := "Duplicate attribute"
		if len(dups) > 1 {
			label = "Duplicate attributes"
		}
		c.diags.Warn(file, 1, "%s: %s", label, strings.Join(dups, ", "))
	}
	c.checkVersion(info.Version)
	c.checkVersion(info.Compatibility)

	c.docs = append(c.docs, openDoc{mode: mode, docType: ctx.DocType, minSectionLevel: ctx.MinSectionLevel})
	doc := &c.docs[len(c.docs)-1]

	if mode == DocIgnore {
		if info.Version.IsSet() && ctx.File != nil {
			ctx.File.Version = info.Version
		}
		depth := c.ids.Depth()
		c.ids.StartFile(includeDocID, info.ID, info.Title)
		if c.ids.Depth() > depth {
			doc.ownsRoot = true
			ctx.MinSectionLevel = ctx.SectionLevel
		}
		return
	}
	doc.ownsRoot = true

	version := info.Version
	if !version.IsSet() {
		version = DefaultVersion
		c.diags.Warn(file, 1, "Document version undefined. Version %s is assumed", version)
	}
	compat := info.Compatibility
	if c.cfg.CompatibilityVersion.IsSet() {
		compat = c.cfg.CompatibilityVersion
	}
	if !compat.IsSet() {
		compat = version
	}
	if ctx.File != nil {
		ctx.File.Version = version
	}

	start := c.ids.StartFileWithDocInfo(compat, includeDocID, info.ID, info.Title)
	ctx.DocID = start.DocID
	ctx.DocType = info.Type
	ctx.MinSectionLevel = ctx.SectionLevel
	c.logger.Debug("document started", "file", ctx.FilenameRelative, "id", start.DocID,
		"version", version.String(), "compatibility", compat.String(), "policy", c.ids.Kind().String())

	if info.Type == "" {
		return
	}
	if info.Type != "library" {
		var invalid []string
		for _, name := range libraryAttributes {
			if _, ok := info.attr(name); ok {
				invalid = append(invalid, name)
			}
		}
		if len(invalid) > 0 {
			label := "Invalid attribute"
			if len(invalid) > 1 {
				label = "Invalid attributes"
			}
			c.diags.Warn(file, 1, "%s for '%s document info': %s", label, info.Type, strings.Join(invalid, ", "))
		}
	}

	c.writeDocumentHeader(mode, start, info)
}

func (c *Compiler) checkVersion(v config.Version) {
	if v.IsSet() && !v.Known() {
		c.diags.Warn(c.ctx.Filename, 1, "Unknown version: %s", v)
	}
}

func (c *Compiler) writeDocumentHeader(mode DocInfoMode, start sections.StartFileInfo, info DocInfo) {
	var b strings.Builder
	if mode == DocMain {
		b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	}
	fmt.Fprintf(&b, "<%s id=\"%s\"", info.Type, start.Placeholder)
	if lang, ok := info.attr("lang"); ok {
		fmt.Fprintf(&b, " lang=\"%s\"", lang)
	}
	if info.Type == "library" {
		fmt.Fprintf(&b, " name=\"%s\"", info.Title)
		dirname, ok := info.attr("dirname")
		if !ok {
			dirname = start.DocID
		}
		fmt.Fprintf(&b, " dirname=\"%s\"", dirname)
	}
	b.WriteString(">\n")

	var meta strings.Builder
	if license, ok := info.attr("license"); ok {
		fmt.Fprintf(&meta, "<legalnotice id=\"%s\"><para>%s</para></legalnotice>\n",
			c.ids.AddID("legal", ids.CategoryGenerated), license)
	}
	if purpose, ok := info.attr("purpose"); ok {
		fmt.Fprintf(&meta, "<%[1]spurpose>%[2]s</%[1]spurpose>\n", info.Type, purpose)
	}
	for _, category := range info.attrs("category") {
		fmt.Fprintf(&meta, "<%[1]scategory name=\"category:%[2]s\"></%[1]scategory>\n", info.Type, category)
	}

	title := ""
	if info.Title != "" {
		title = "<title>" + info.Title
		if version, ok := info.attr("version"); ok {
			title += " " + version
		}
		title += "</title>\n"
	}

	if info.Type != "library" {
		b.WriteString(title)
	}
	if meta.Len() > 0 {
		fmt.Fprintf(&b, "<%[1]sinfo>\n%[2]s</%[1]sinfo>\n", info.Type, meta.String())
	}
	if info.Type == "library" {
		b.WriteString(title)
	}
	c.Write(b.String())
}

// EndDocument ends the current file's document. Sections left open by a
// document root are closed with a warning.
func (c *Compiler) EndDocument() {
	n := len(c.docs)
	invariant.Precondition(n > 0, "EndDocument without BeginDocument")
	doc := c.docs[n-1]
	c.docs = c.docs[:n-1]
	ctx := c.ctx

	if doc.ownsRoot {
		if c.ids.SectionLevel() > 1 {
			c.diags.Warn(ctx.Filename, 0, "Missing end_section detected at end of file")
			for c.ids.SectionLevel() > 1 {
				c.Write("</section>")
				c.ids.EndSection()
				c.closeSectionCounters()
			}
		}
	}
	c.ids.EndFile()

	if doc.mode != DocIgnore {
		if ctx.DocType != "" {
			c.Write(fmt.Sprintf("\n</%s>\n", ctx.DocType))
		}
		ctx.DocType = doc.docType
	}
	if doc.ownsRoot {
		ctx.MinSectionLevel = doc.minSectionLevel
	}
}

// BeginSection opens a section. Without an explicit id, the id is derived
// from the title.
func (c *Compiler) BeginSection(id, title string) {
	category := ids.CategoryExplicit
	if id == "" {
		id = sections.MakeIdentifier(title)
		category = ids.CategoryGenerated
	}

	ctx := c.ctx
	ctx.SectionLevel++
	ctx.SectionID = id
	if ctx.QualifiedSectionID == "" {
		ctx.QualifiedSectionID = id
	} else {
		ctx.QualifiedSectionID += "." + id
	}

	token := c.ids.BeginSection(id, category)
	c.Write(fmt.Sprintf("<section id=\"%s\">", token))
	if title != "" {
		c.Write("<title>" + title + "</title>")
	}
}

// EndSection closes the innermost section. A close with no matching open
// section in the current template or document is reported and ignored.
func (c *Compiler) EndSection() {
	if c.ctx.SectionLevel <= c.ctx.MinSectionLevel || c.ids.SectionLevel() <= 1 {
		c.Warn("Mismatched end_section")
		return
	}
	c.Write("</section>")
	c.ids.EndSection()
	c.closeSectionCounters()
}

func (c *Compiler) closeSectionCounters() {
	ctx := c.ctx
	if ctx.SectionLevel > 0 {
		ctx.SectionLevel--
	}
	if n := strings.LastIndexByte(ctx.QualifiedSectionID, '.'); n >= 0 {
		ctx.QualifiedSectionID = ctx.QualifiedSectionID[:n]
	} else {
		ctx.QualifiedSectionID = ""
	}
}

// Anchor writes an anchor with an explicit, unqualified id.
func (c *Compiler) Anchor(id string) {
	c.Write(fmt.Sprintf("<anchor id=\"%s\"/>", c.ids.AddAnchor(id, ids.CategoryExplicit)))
}

// Heading writes a heading whose id is qualified by the open sections. An
// explicit id is used as given; otherwise the id is derived from the title.
func (c *Compiler) Heading(id, title string) {
	var token string
	if id != "" {
		token = c.ids.AddID(id, ids.CategoryExplicit)
	} else {
		token = c.ids.OldStyleID(sections.MakeIdentifier(title), ids.CategoryGenerated)
	}
	level := min(max(c.ids.SectionLevel(), 1), 6)
	c.Write(fmt.Sprintf("<bridgehead renderas=\"sect%d\" id=\"%s\"><phrase role=\"title\">%s</phrase></bridgehead>",
		level, token, title))
}
