// Package compiler holds the compilation state threaded through a document:
// the current file, macro and template tables, section counters and output.
//
// A parser (or the event replayer in runtime/script) drives a Compiler with
// one call per construct. Included files and template expansions run inside
// scopes that restore the state on exit. Finish resolves every id
// placeholder in the assembled output.
package compiler

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aledsdavies/quire/core/config"
	"github.com/aledsdavies/quire/core/errors"
	"github.com/aledsdavies/quire/core/ids"
	"github.com/aledsdavies/quire/core/invariant"
	"github.com/aledsdavies/quire/core/sections"
	"github.com/aledsdavies/quire/core/symbols"
	"github.com/aledsdavies/quire/runtime/files"
)

// Predefined macro names.
const (
	MacroDate     = "__DATE__"
	MacroTime     = "__TIME__"
	MacroFilename = "__FILENAME__"
)

// Options configures a Compiler.
type Options struct {
	Config config.Config
	Loader *files.Loader // nil creates a private loader
	Logger *slog.Logger  // nil discards log output
	Now    func() time.Time
}

// Compiler drives one compilation.
type Compiler struct {
	cfg     config.Config
	ctx     *Context
	ids     *sections.Manager
	loader  *files.Loader
	out     *Collector
	scopes  []frame
	docs    []openDoc
	diags   *Diagnostics
	logger  *slog.Logger
	baseDir string
}

// New creates a compiler with the predefined macros bound.
func New(opts Options) *Compiler {
	logger := opts.Logger
	if logger == nil {
		logger = config.DiscardLogger()
	}
	loader := opts.Loader
	if loader == nil {
		loader = files.NewLoader(logger)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	cfg := opts.Config
	if cfg.MaxTemplateDepth <= 0 {
		cfg.MaxTemplateDepth = config.DefaultMaxTemplateDepth
	}
	if cfg.SourceMode == "" {
		cfg.SourceMode = config.DefaultSourceMode
	}

	c := &Compiler{
		cfg: cfg,
		ctx: &Context{
			SourceMode: cfg.SourceMode,
			Macros:     symbols.New[string](),
			Templates:  symbols.New[Template](),
		},
		ids:    sections.NewManager(ids.NewArena(cfg.MaxIDLength)),
		loader: loader,
		out:    NewCollector(),
		diags:  newDiagnostics(logger),
		logger: logger,
	}

	t := now()
	c.ctx.Macros.Add(MacroDate, t.Format("2006-Jan-02"))
	c.ctx.Macros.Add(MacroTime, t.Format("03:04:05 PM"))
	return c
}

// Context returns the live state.
func (c *Compiler) Context() *Context { return c.ctx }

// Diagnostics returns the warnings reported so far.
func (c *Compiler) Diagnostics() *Diagnostics { return c.diags }

// Sections returns the id manager.
func (c *Compiler) Sections() *sections.Manager { return c.ids }

// Loader returns the file loader.
func (c *Compiler) Loader() *files.Loader { return c.loader }

// Config returns the compiler's configuration.
func (c *Compiler) Config() config.Config { return c.cfg }

// Write appends text to the current output frame.
func (c *Compiler) Write(text string) {
	c.out.Write(text)
}

// Warn reports a warning against the current file.
func (c *Compiler) Warn(format string, args ...any) {
	c.diags.Warn(c.ctx.Filename, 0, format, args...)
}

// EnterMainFile makes f the current file. Relative names are computed from
// its directory.
func (c *Compiler) EnterMainFile(f *files.File) {
	invariant.Precondition(c.ctx.File == nil, "main file entered twice")
	c.baseDir = filepath.Dir(f.Path)
	c.enterFile(f)
}

func (c *Compiler) enterFile(f *files.File) {
	ctx := c.ctx
	ctx.File = f
	ctx.Filename = f.Path
	ctx.FilenameRelative = filepath.Base(f.Path)
	if rel, err := filepath.Rel(c.baseDir, f.Path); err == nil {
		ctx.FilenameRelative = filepath.ToSlash(rel)
	}
	ctx.Macros.Add(MacroFilename, ctx.FilenameRelative)
	c.logger.Debug("entering file", "file", ctx.FilenameRelative)
}

// Include loads path, relative to the current file, and compiles it inside a
// file scope. From 1.6 on, macros and templates defined by the included file
// stay local to it.
func (c *Compiler) Include(path string, compile func(f *files.File) error) error {
	if !filepath.IsAbs(path) && c.ctx.File != nil {
		path = filepath.Join(filepath.Dir(c.ctx.File.Path), path)
	}
	f, err := c.loader.Load(path)
	if err != nil {
		return err
	}

	flags := ScopeNone
	if c.ids.CompatibilityVersion() >= sections.ModernVersion {
		flags = ScopeAll
	}
	c.PushFileScope(flags)
	c.enterFile(f)
	err = compile(f)
	c.PopFileScope()

	if flags&ScopeMacros == 0 {
		c.ctx.Macros.Add(MacroFilename, c.ctx.FilenameRelative)
	}
	return err
}

// SetSourceMode changes the default language of code blocks.
func (c *Compiler) SetSourceMode(mode string) {
	c.ctx.SourceMode = mode
}

// DefineMacro binds name in the current macro scope.
func (c *Compiler) DefineMacro(name, value string) {
	c.ctx.Macros.Add(name, value)
}

// ExpandMacro writes the value bound to name.
func (c *Compiler) ExpandMacro(name string) error {
	value, ok := c.ctx.Macros.Find(name)
	if !ok {
		return errors.NewMacroNotFoundError(name, c.ctx.Macros.Suggest(name)).
			WithContext("file", c.ctx.Filename)
	}
	c.Write(value)
	return nil
}

// DefineTemplate binds a template in the current template scope.
func (c *Compiler) DefineTemplate(name string, body any) {
	c.ctx.Templates.Add(name, Template{Name: name, File: c.ctx.File, Body: body})
}

// CallTemplate expands the named template inside a template scope. expand
// produces the template's output; if it fails, the output is dropped and
// the error returned.
func (c *Compiler) CallTemplate(name string, expand func(t Template) error) error {
	t, ok := c.ctx.Templates.Find(name)
	if !ok {
		return errors.NewTemplateNotFoundError(name, c.ctx.Templates.Suggest(name)).
			WithContext("file", c.ctx.Filename)
	}

	if err := c.PushTemplateScope(); err != nil {
		return err
	}
	// The body runs in the file it was defined in.
	if t.File != nil {
		c.ctx.File = t.File
		c.ctx.Filename = t.File.Path
	}
	err := expand(t)
	out := c.PopTemplateScope()
	if err != nil {
		return err
	}

	c.Write(out)
	return nil
}

// Finish resolves every id placeholder in the output and returns the final
// text. All files and scopes must have been closed.
func (c *Compiler) Finish() string {
	invariant.Precondition(len(c.scopes) == 0, "finish with %d scope(s) open", len(c.scopes))
	invariant.Precondition(len(c.docs) == 0, "finish with %d file(s) open", len(c.docs))
	invariant.Invariant(c.out.Depth() == 1, "output frames left open")
	return c.ids.ReplacePlaceholders(c.out.String())
}

// Report describes how every id placeholder was resolved. Call after Finish.
func (c *Compiler) Report() ids.Report {
	return c.ids.Arena().Report()
}
