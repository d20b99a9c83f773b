package ids

import (
	"sort"
	"strconv"
	"strings"

	"github.com/aledsdavies/quire/core/invariant"
)

// Finish resolves every placeholder referenced in text and returns text with
// the tokens replaced by final ids.
//
// It runs three passes: number the referenced placeholders in document
// order, decide ids level by level (a level's ids need their parents'
// final ids), then substitute. Placeholders never referenced in text are
// left alone. Calling Finish again on finished output is a no-op.
func (a *Arena) Finish(text string) string {
	batch := a.index(text)

	for start := 0; start < len(batch); {
		level := a.placeholders[batch[start]].level
		end := start
		for end < len(batch) && a.placeholders[batch[end]].level == level {
			end++
		}

		// Ids at different levels never clash, so each level gets a fresh
		// registry.
		r := newResolver(a)
		for _, ref := range batch[start:end] {
			r.resolve(&a.placeholders[ref])
		}
		for _, ref := range batch[start:end] {
			r.generate(ref)
		}
		start = end
	}

	return a.replace(text)
}

// index numbers the placeholders referenced in text and returns the ones
// still to be resolved, sorted by level, explicit ids first, then rank.
func (a *Arena) index(text string) []Ref {
	var pending []Ref
	var number func(ref Ref)
	number = func(ref Ref) {
		p := &a.placeholders[ref]
		if p.order != 0 || p.state == StateGenerated {
			return
		}
		// A parent ranks before its first-referenced child.
		if p.state == StateChild {
			number(p.parent)
		}
		a.orderCount++
		p.order = a.orderCount
		pending = append(pending, ref)
	}

	scanIDs(text, func(start, end int) {
		if ref, ok := a.Lookup(text[start:end]); ok {
			number(ref)
		}
	})

	sort.Slice(pending, func(i, j int) bool {
		x, y := &a.placeholders[pending[i]], &a.placeholders[pending[j]]
		if x.level != y.level {
			return x.level < y.level
		}
		xExplicit := x.category == CategoryExplicit
		yExplicit := y.category == CategoryExplicit
		if xExplicit != yExplicit {
			return xExplicit
		}
		return x.order < y.order
	})
	return pending
}

// replace substitutes final ids for every token in text.
func (a *Arena) replace(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	pos := 0

	scanIDs(text, func(start, end int) {
		ref, ok := a.Lookup(text[start:end])
		if !ok {
			return
		}
		p := &a.placeholders[ref]
		invariant.Invariant(p.state == StateGenerated && p.consistent(),
			"placeholder %d replaced in state %s", ref, p.state)

		b.WriteString(text[pos:start])
		b.WriteString(p.id)
		pos = end
	})

	b.WriteString(text[pos:])
	return b.String()
}

// record is the bookkeeping for one desired id within a level. Several
// placeholders point at one record when they want the same id.
type record struct {
	category Category // highest category wanting this id
	used     bool
	gen      int // generation state, -1 until a duplicate is found
}

// generation builds suffixed ids for one prefix. Truncation can make
// different ids share a prefix, so records share generations by index.
type generation struct {
	childStart int    // offset of the last dotted segment
	id         string // the prefix numbers are appended to
	count      int
}

func (g *generation) childLength() int {
	return len(g.id) - g.childStart
}

// reduce drops the prefix's trailing digits, or its last byte when it has
// none, and restarts numbering.
func (g *generation) reduce() {
	invariant.Precondition(g.childLength() > 0, "reducing empty id prefix %q", g.id)
	length := len(g.id) - 1
	for length > g.childStart && isDigit(g.id[length-1]) {
		length--
	}
	g.id = g.id[:length]
	g.count = 0
}

type resolver struct {
	arena    *Arena
	maxSize  int
	records  []record
	gens     []generation
	registry map[string]int
}

func newResolver(a *Arena) *resolver {
	return &resolver{
		arena:    a,
		maxSize:  a.maxSize,
		registry: make(map[string]int),
	}
}

// lookup returns the record for id, creating it if needed.
func (r *resolver) lookup(id string) int {
	if i, ok := r.registry[id]; ok {
		return i
	}
	r.records = append(r.records, record{category: CategoryNumbered, gen: -1})
	i := len(r.records) - 1
	r.registry[id] = i
	return i
}

// resolve computes the full id and registers it. The parent must already be
// generated.
func (r *resolver) resolve(p *placeholder) {
	invariant.Invariant(p.consistent(), "placeholder %d inconsistent before resolve", p.index)

	if p.state == StateChild {
		parent := &r.arena.placeholders[p.parent]
		invariant.Invariant(parent.state == StateGenerated,
			"placeholder %d resolved before parent %d", p.index, parent.index)

		local := p.id
		if p.normalize {
			local = normalize(local, 0, r.maxSize)
		}
		p.id = parent.id + "." + local
		p.state = StateUnresolved
		p.parent = NoRef
	} else if p.normalize {
		p.id = normalizeQualified(p.id, r.maxSize)
	}

	invariant.Invariant(p.state == StateUnresolved && p.consistent(),
		"placeholder %d not unresolved after parent splice", p.index)

	i := r.lookup(p.id)
	if p.category > r.records[i].category {
		r.records[i].category = p.category
	}
	p.data = i
	p.state = StateResolved
}

// generate decides the final id.
func (r *resolver) generate(ref Ref) {
	p := &r.arena.placeholders[ref]
	invariant.Invariant(p.state == StateResolved && p.consistent(),
		"placeholder %d generated in state %s", p.index, p.state)

	rec := &r.records[p.data]
	if p.category == rec.category && !rec.used && p.category != CategoryNumbered {
		rec.used = true
		r.settle(p, p.id)
		return
	}

	if rec.gen < 0 {
		r.gens = append(r.gens, newGeneration(p.id, r.maxSize))
		r.records[p.data].gen = len(r.gens) - 1
		r.register(p)
	}

	for {
		g := &r.gens[r.records[p.data].gen]
		postfix := strconv.Itoa(g.count)
		g.count++

		// An empty prefix cannot shrink further, so the suffix may run past
		// the cap rather than loop forever.
		if g.childLength()+len(postfix) > r.maxSize && g.childLength() > 0 {
			g.reduce()
			r.register(p)
			continue
		}

		candidate := g.id + postfix
		if _, taken := r.registry[candidate]; !taken {
			i := r.lookup(candidate)
			r.records[i].used = true
			r.records[i].category = p.category
			r.settle(p, candidate)
			return
		}
	}
}

// register anchors p's generation at its current prefix. When another
// generation already owns that prefix, p's record switches to it so both
// draw from one counter.
func (r *resolver) register(p *placeholder) {
	gi := r.records[p.data].gen
	i := r.lookup(r.gens[gi].id)
	if existing := r.records[i].gen; existing >= 0 {
		r.records[p.data].gen = existing
	} else {
		r.records[i].gen = gi
	}
}

func (r *resolver) settle(p *placeholder, id string) {
	p.id = id
	p.state = StateGenerated
	p.data = -1
}

// newGeneration builds the prefix for src: its last segment normalized and
// capped one short of maxSize to leave room for a digit. A prefix ending in a
// digit gets a '_' so suffixes stay distinguishable, or loses its trailing
// digits when there is no room.
func newGeneration(src string, maxSize int) generation {
	start := lastSegment(src)
	g := generation{
		childStart: start,
		id:         normalize(src, start, maxSize-1),
	}
	if g.childLength() > 0 && isDigit(g.id[len(g.id)-1]) {
		if g.childLength() < maxSize-1 {
			g.id += "_"
		} else {
			g.reduce()
		}
	}
	return g
}
