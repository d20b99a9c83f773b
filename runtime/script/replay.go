package script

import (
	stderrors "errors"
	"fmt"

	"github.com/aledsdavies/quire/core/errors"
	"github.com/aledsdavies/quire/core/ids"
	"github.com/aledsdavies/quire/runtime/compiler"
	"github.com/aledsdavies/quire/runtime/files"
)

// Result is the outcome of a build.
type Result struct {
	Output      string
	Report      ids.Report
	Diagnostics []compiler.Diagnostic
}

// Build compiles the script at path as the main document.
func Build(c *compiler.Compiler, path string) (*Result, error) {
	f, err := c.Loader().Load(path)
	if err != nil {
		return nil, err
	}
	c.EnterMainFile(f)
	if err := runFile(c, f, compiler.DocMain, ""); err != nil {
		return nil, err
	}

	out := c.Finish()
	return &Result{
		Output:      out,
		Report:      c.Report(),
		Diagnostics: c.Diagnostics().Warnings(),
	}, nil
}

// runFile replays one file's events as a document. mode is DocMain for the
// main file; included files open a nested document only when they carry
// doc info.
func runFile(c *compiler.Compiler, f *files.File, mode compiler.DocInfoMode, includeDocID string) error {
	s, err := Parse([]byte(f.Source))
	if err != nil {
		return withFile(err, f.Path)
	}

	events := s.Events
	var info compiler.DocInfo
	if len(events) > 0 && events[0].Op == OpDocInfo {
		if info, err = events[0].DocInfo(); err != nil {
			return withFile(err, f.Path)
		}
		events = events[1:]
	} else if mode == compiler.DocNested {
		mode = compiler.DocIgnore
	}

	c.BeginDocument(mode, includeDocID, info)
	if err := replay(c, events); err != nil {
		return err
	}
	c.EndDocument()
	return nil
}

func replay(c *compiler.Compiler, events []Event) error {
	for i, e := range events {
		if err := apply(c, e); err != nil {
			var qe *errors.QuireError
			if stderrors.As(err, &qe) {
				if _, set := qe.GetContext("event"); !set {
					qe.WithContext("event", fmt.Sprintf("%d (%s)", i, e.Op))
				}
			}
			return err
		}
	}
	return nil
}

func apply(c *compiler.Compiler, e Event) error {
	switch e.Op {
	case OpSection:
		c.BeginSection(e.ID, e.Title)
	case OpEndSection:
		c.EndSection()
	case OpHeading:
		c.Heading(e.ID, e.Title)
	case OpText:
		c.Write(e.Text)
	case OpAnchor:
		c.Anchor(e.ID)
	case OpDefineMacro:
		c.DefineMacro(e.Name, e.Value)
	case OpMacro:
		return c.ExpandMacro(e.Name)
	case OpDefineTemplate:
		c.DefineTemplate(e.Name, e.Body)
	case OpCallTemplate:
		return c.CallTemplate(e.Name, func(t compiler.Template) error {
			body, _ := t.Body.([]Event)
			return replay(c, body)
		})
	case OpInclude:
		return c.Include(e.Path, func(f *files.File) error {
			return runFile(c, f, compiler.DocNested, e.ID)
		})
	case OpSourceMode:
		c.SetSourceMode(e.Mode)
	default:
		return errors.New(errors.ErrScriptInvalid, fmt.Sprintf("unexpected %s event", e.Op))
	}
	return nil
}

func withFile(err error, path string) error {
	var qe *errors.QuireError
	if stderrors.As(err, &qe) {
		qe.WithContext("file", path)
	}
	return err
}
