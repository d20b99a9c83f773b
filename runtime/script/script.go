// Package script reads event scripts: JSON documents listing the calls a
// markup parser would make into the compiler (doc info, sections, anchors,
// text, macro and template definitions and uses, includes). Replaying a
// script drives a compiler end to end.
package script

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/aledsdavies/quire/core/config"
	"github.com/aledsdavies/quire/core/errors"
	"github.com/aledsdavies/quire/runtime/compiler"
)

// FormatVersion is the only script format version understood.
const FormatVersion = 1

// Event operations.
const (
	OpDocInfo        = "doc_info"
	OpSection        = "section"
	OpEndSection     = "end_section"
	OpHeading        = "heading"
	OpText           = "text"
	OpAnchor         = "anchor"
	OpDefineMacro    = "define_macro"
	OpMacro          = "macro"
	OpDefineTemplate = "define_template"
	OpCallTemplate   = "call_template"
	OpInclude        = "include"
	OpSourceMode     = "source_mode"
)

//go:embed schema.json
var schemaJSON string

var validator = config.MustSchemaValidator("script", schemaJSON)

// Script is a decoded event script.
type Script struct {
	Version int     `json:"version"`
	Events  []Event `json:"events"`
}

// Attribute is a doc info attribute.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Event is one parser call. Which fields are used depends on Op.
type Event struct {
	Op string `json:"op"`

	// doc_info
	Type              string      `json:"type,omitempty"`
	QBKVersion        string      `json:"qbk_version,omitempty"`
	CompatibilityMode string      `json:"compatibility_mode,omitempty"`
	Attributes        []Attribute `json:"attributes,omitempty"`

	// doc_info, section, heading, anchor, include
	Title string `json:"title,omitempty"`
	ID    string `json:"id,omitempty"`

	Text  string  `json:"text,omitempty"`
	Name  string  `json:"name,omitempty"`
	Value string  `json:"value,omitempty"`
	Body  []Event `json:"body,omitempty"`
	Path  string  `json:"path,omitempty"`
	Mode  string  `json:"mode,omitempty"`
}

// Parse validates data against the script schema and decodes it.
func Parse(data []byte) (*Script, error) {
	if err := validator.Validate(data); err != nil {
		return nil, errors.Wrap(errors.ErrScriptInvalid, "event script does not match schema", err)
	}

	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(errors.ErrScriptInvalid, "could not decode event script", err)
	}
	for i, e := range s.Events {
		if e.Op == OpDocInfo && i > 0 {
			return nil, errors.New(errors.ErrScriptInvalid,
				fmt.Sprintf("doc_info must be the first event, found at event %d", i))
		}
	}
	return &s, nil
}

// DocInfo converts a doc_info event.
func (e Event) DocInfo() (compiler.DocInfo, error) {
	info := compiler.DocInfo{
		Type:  e.Type,
		Title: e.Title,
		ID:    e.ID,
	}
	var err error
	if e.QBKVersion != "" {
		if info.Version, err = config.ParseVersion(e.QBKVersion); err != nil {
			return info, errors.Wrap(errors.ErrScriptInvalid, "invalid qbk_version", err)
		}
	}
	if e.CompatibilityMode != "" {
		if info.Compatibility, err = config.ParseVersion(e.CompatibilityMode); err != nil {
			return info, errors.Wrap(errors.ErrScriptInvalid, "invalid compatibility_mode", err)
		}
	}
	for _, a := range e.Attributes {
		info.Attributes = append(info.Attributes, compiler.Attribute{Name: a.Name, Value: a.Value})
	}
	return info, nil
}
