// label.go implements the label table (spec §3 "Label", §4.1 `new_label` /
// `assign_label`, supplemented per SPEC_FULL §12 with ACSE's
// createLabel/assignLabelName name sanitisation and disambiguation).
//
// Re-architected per spec §9's design notes: the teacher and ACSE both treat
// label generation as process-wide state (global counters/channels); here it
// is a field of the owning Program so that running several compilations in
// sequence never leaks identifiers between them.

package ir

import (
	"fmt"
	"regexp"
)

// sanitizeName strips everything but [A-Za-z0-9_] from a proposed label
// name (spec §4.1).
var sanitizeName = regexp.MustCompile(`[^A-Za-z0-9_]`).ReplaceAllString

// Label identifies a target for branches/jumps and a name for global data.
// Two labels with equal ID share Name and Global (spec §3 invariant); at
// most one non-alias instance exists per ID. An alias label keeps its own
// original ID and Name, which merging does not update — callers should
// resolve through Resolve to reach the current primary.
type Label struct {
	ID      uint32
	Name    string
	Global  bool
	IsAlias bool

	primary  *Label // set iff IsAlias; the label this one collapsed into.
	consumed bool   // true once attached to an instruction or merged away.
}

// Resolve returns the primary label l ultimately refers to: l itself if it
// is not an alias, otherwise its primary (aliases are never chained further
// than one hop, since mergeInto always merges into an existing primary).
func (l *Label) Resolve() *Label {
	if l.IsAlias && l.primary != nil {
		return l.primary
	}
	return l
}

// labelTable allocates label IDs and deduplicates names. Owned by Program.
type labelTable struct {
	nextID uint32
	byName map[string]uint32
}

func newLabelTable() *labelTable {
	return &labelTable{byName: make(map[string]uint32)}
}

// new allocates a fresh label, optionally with a sanitised, disambiguated
// name (spec §4.1 `new_label`).
func (lt *labelTable) new(name string) *Label {
	id := lt.nextID
	lt.nextID++

	lbl := &Label{ID: id}
	if name != "" {
		lbl.Name = lt.claim(sanitizeName(name, ""))
	}
	return lbl
}

// newRaw allocates a fresh label with name claimed as-is, skipping
// sanitisation. Used for compiler-synthesised assembler symbols.
func (lt *labelTable) newRaw(name string) *Label {
	id := lt.nextID
	lt.nextID++

	lbl := &Label{ID: id}
	if name != "" {
		lbl.Name = lt.claim(name)
	}
	return lbl
}

// claim returns a name derived from base that is not already registered,
// appending "_<n>" for the lowest free n starting at 0 on collision, and
// registers the chosen name. An empty base is returned unmodified and left
// unregistered (anonymous labels never collide).
func (lt *labelTable) claim(base string) string {
	if base == "" {
		return base
	}
	if _, used := lt.byName[base]; !used {
		lt.byName[base] = 1
		return base
	}
	for n := 0; ; n++ {
		cand := fmt.Sprintf("%s_%d", base, n)
		if _, used := lt.byName[cand]; !used {
			lt.byName[cand] = 1
			return cand
		}
	}
}

// rename reassigns lbl's name via the same sanitise+disambiguate path used
// by new, releasing its previous claim first so the old name can be reused
// by someone else.
func (lt *labelTable) rename(lbl *Label, name string) {
	if lbl.Name != "" {
		delete(lt.byName, lbl.Name)
	}
	if name == "" {
		lbl.Name = ""
		return
	}
	lbl.Name = lt.claim(sanitizeName(name, ""))
}

// mergeInto collapses alias into primary per spec §3's Label invariant: the
// alias is redirected to primary (Resolve on it yields primary, whose ID
// survives; the alias's own fields are left as they were), names are
// merged onto primary preferring the named one
// (else the smaller ID), Global becomes the logical OR, and alias is marked
// IsAlias. Called by Program.AssignLabel when a label is assigned while
// another is already pending (spec §4.1).
func (lt *labelTable) mergeInto(primary, alias *Label) {
	transferName := ""
	switch {
	case primary.Name == "" && alias.Name != "":
		transferName = alias.Name
	case primary.Name != "" && alias.Name == "":
		// Keep primary's name.
	default:
		// Both or neither named: the smaller ID's name wins.
		if alias.Name != "" && alias.ID < primary.ID {
			transferName = alias.Name
		}
	}

	// Free the alias's claim first so the rename below (when transferring
	// its name to primary) doesn't collide with itself and pick up a
	// spurious "_0" suffix.
	if alias.Name != "" {
		delete(lt.byName, alias.Name)
	}
	if transferName != "" {
		lt.rename(primary, transferName)
	}

	primary.Global = primary.Global || alias.Global
	alias.IsAlias = true
	alias.primary = primary
}
