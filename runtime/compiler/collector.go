package compiler

import (
	"strings"

	"github.com/aledsdavies/quire/core/invariant"
)

// Collector is a stack of output buffers. Template expansion writes into a
// fresh frame so its output can be dropped if the expansion fails.
type Collector struct {
	frames []*strings.Builder
}

// NewCollector creates a collector with one root frame.
func NewCollector() *Collector {
	return &Collector{frames: []*strings.Builder{{}}}
}

// Write appends s to the top frame.
func (c *Collector) Write(s string) {
	c.frames[len(c.frames)-1].WriteString(s)
}

// Push starts a new frame.
func (c *Collector) Push() {
	c.frames = append(c.frames, &strings.Builder{})
}

// Pop removes the top frame and returns what was written to it.
func (c *Collector) Pop() string {
	invariant.Precondition(len(c.frames) > 1, "pop of root output frame")
	top := c.frames[len(c.frames)-1]
	c.frames = c.frames[:len(c.frames)-1]
	return top.String()
}

// Depth returns the number of frames, including the root.
func (c *Collector) Depth() int {
	return len(c.frames)
}

// String returns the root frame's contents.
func (c *Collector) String() string {
	return c.frames[0].String()
}
