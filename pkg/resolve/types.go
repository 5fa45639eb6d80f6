// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package resolve implements a staged call-graph resolver for a
// structurally-typed, class-based scripting language with module imports.
//
// Given a FunctionIndex and a set of source files exposed through a
// SyntaxOracle and a TypeOracle, the Coordinator drives an ordered pipeline
// (local -> import -> class-hierarchy -> rapid-type -> runtime) that
// progressively resolves call sites into a ledger of call edges, each
// carrying a resolution provenance and a confidence score in [0,1].
package resolve

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ResolutionLevel identifies which pipeline stage produced an edge.
// Levels are numbered in stage pipeline order. Confidence does not rise
// with the level: see baseConfidence for each level's base score.
type ResolutionLevel int

const (
	// LevelUnknown is the zero value; never attached to a stored edge.
	LevelUnknown ResolutionLevel = iota
	// LevelLocalExact marks a callee defined in the same file and uniquely
	// named in scope.
	LevelLocalExact
	// LevelImportExact marks a callee reached via a symbol declared in a
	// known, non-builtin file.
	LevelImportExact
	// LevelCHAResolved marks a callee enumerated by class-hierarchy
	// analysis: one of potentially several method bodies named M on some
	// subtype of the declared receiver type.
	LevelCHAResolved
	// LevelRTAResolved marks a CHA candidate restricted to classes proven
	// instantiated somewhere in the program.
	LevelRTAResolved
	// LevelRuntimeConfirmed marks an edge witnessed at execution time.
	LevelRuntimeConfirmed
)

// String renders the level the way the rest of the package logs it.
func (l ResolutionLevel) String() string {
	switch l {
	case LevelLocalExact:
		return "local_exact"
	case LevelImportExact:
		return "import_exact"
	case LevelCHAResolved:
		return "cha_resolved"
	case LevelRTAResolved:
		return "rta_resolved"
	case LevelRuntimeConfirmed:
		return "runtime_confirmed"
	default:
		return "unknown"
	}
}

// CallKind classifies the syntactic shape of a call site.
type CallKind string

const (
	CallDirect      CallKind = "direct"
	CallVirtual     CallKind = "virtual"
	CallConstructor CallKind = "constructor"
	CallExternal    CallKind = "external"
	CallCallback    CallKind = "callback"
)

// optionalChainPenalty is subtracted from a level's base confidence when
// the call site used optional chaining (?.).
const optionalChainPenalty = 0.05

// baseConfidence returns the fixed base score for a resolution level,
// before any per-site adjustment (optional chaining, abstract parent,
// class-vs-interface receiver).
func baseConfidence(level ResolutionLevel) float64 {
	switch level {
	case LevelLocalExact:
		return 1.00
	case LevelImportExact:
		return 0.95
	case LevelCHAResolved:
		return 0.80
	case LevelRTAResolved:
		return 0.90
	case LevelRuntimeConfirmed:
		return 1.00
	default:
		return 0.0
	}
}

// Function is an immutable function/method record, keyed by a stable id
// derived from its file path, start line, name, and class qualifier.
//
// Invariant: (FilePath, StartLine) is unique across a FunctionIndex, and
// every line in [StartLine, EndLine] maps back to this id.
type Function struct {
	ID          string
	Name        string
	ClassName   string // empty for free functions
	FilePath    string
	StartLine   int
	EndLine     int
	LexicalPath string // dotted qualifier, unique within file

	// Signature is the raw "name(params)" text as written, when
	// DiscoverFunctions captured one. Empty for hosts that build a
	// Function catalog without it (e.g. hand-built test fixtures).
	// sigparse.ParseParams can turn it into per-parameter declared types.
	Signature string
}

// IsMethod reports whether the function has an enclosing class.
func (f Function) IsMethod() bool {
	return f.ClassName != ""
}

// QualifiedName returns "Class.Method" for methods, or the bare name for
// free functions.
func (f Function) QualifiedName() string {
	if f.ClassName == "" {
		return f.Name
	}
	return f.ClassName + "." + f.Name
}

// GenerateFunctionID derives a stable id from a file path, start line,
// name, class qualifier, and snapshot tag. The same physical declaration
// in the same snapshot always yields the same id.
func GenerateFunctionID(filePath, class, name, snapshotTag string, startLine int) string {
	h := sha256.New()
	h.Write([]byte(filePath))
	h.Write([]byte{0})
	h.Write([]byte(class))
	h.Write([]byte{0})
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write([]byte(snapshotTag))
	h.Write([]byte{0})
	fmt.Fprintf(h, "%d", startLine)
	return "fn:" + hex.EncodeToString(h.Sum(nil))[:20]
}

// Edge is a directed call relation from a caller function to a callee
// function, tied to a source line.
//
// Re-insertion under the same dedup key keeps the stored edge unless the
// new one has strictly higher confidence, in which case it replaces it;
// RuntimeConfirmed latches false->true only.
type Edge struct {
	ID                string
	CallerID          string
	CalleeID          string
	CalleeName        string
	CalleeClass       string
	Kind              CallKind
	Line              int
	Column            int
	OptionalChaining  bool
	Confidence        float64
	Level             ResolutionLevel
	Source            string // finer-grained tag, e.g. "identifier_import", "field_import"
	Candidates        []string
	RuntimeConfirmed  bool
	OriginFileHash    string
}

// Key returns the dedup key for this edge: caller, callee, and site line.
func (e Edge) Key() string {
	return e.CallerID + "->" + e.CalleeID + "@" + fmt.Sprintf("%d", e.Line)
}

// NewEdge builds an edge with confidence computed from level, optional
// chaining, and the two CHA-specific bumps (abstract parent, class vs.
// interface receiver). Pass hasAbstractParent/receiverIsClass as false
// for non-CHA levels; they are no-ops there.
//
// The optional-chaining penalty (and the OptionalChaining field itself)
// applies only at LevelLocalExact and LevelImportExact, matching spec
// 4.0's confidence table, which lists no chaining adjustment for CHA/RTA
// levels. A "?."-sited call that reaches CHA/RTA stores
// OptionalChaining=false rather than a flag with no confidence effect, so
// the invariant "OptionalChaining=true implies confidence=base-0.05"
// holds for every edge, not just local/import ones.
func NewEdge(callerID, calleeID, calleeName, calleeClass string, kind CallKind, line, column int, level ResolutionLevel, source string, optionalChaining, hasAbstractParent, receiverIsClass bool) Edge {
	conf := baseConfidence(level)
	if level == LevelCHAResolved {
		if hasAbstractParent {
			conf += 0.10
		}
		if receiverIsClass {
			conf += 0.05
		}
	}
	penalized := optionalChaining && (level == LevelLocalExact || level == LevelImportExact)
	if penalized {
		conf -= optionalChainPenalty
	}
	e := Edge{
		CallerID:         callerID,
		CalleeID:         calleeID,
		CalleeName:       calleeName,
		CalleeClass:      calleeClass,
		Kind:             kind,
		Line:             line,
		Column:           column,
		OptionalChaining: penalized,
		Confidence:       conf,
		Level:            level,
		Source:           source,
		Candidates:       []string{calleeID},
	}
	e.ID = GenerateEdgeID(callerID, calleeID, line)
	return e
}

// GenerateEdgeID derives a stable edge id from caller, callee, and site line.
func GenerateEdgeID(callerID, calleeID string, line int) string {
	h := sha256.New()
	h.Write([]byte(callerID))
	h.Write([]byte{0})
	h.Write([]byte(calleeID))
	h.Write([]byte{0})
	fmt.Fprintf(h, "%d", line)
	return "edge:" + hex.EncodeToString(h.Sum(nil))[:20]
}

// UnresolvedCall is a staged work item: a call site known to exist but not
// yet tied to a callee id. Created by ImportStage when a property-access
// call cannot be settled to an exact callee; consumed by CHAStage.
type UnresolvedCall struct {
	CallerID        string
	MethodName      string
	ReceiverType    string // declared class/interface name, never the variable spelling
	FilePath        string
	Line            int
	Column          int
	OptionalChain   bool
}

// Key dedups unresolved entries by caller, method name, and site line.
func (u UnresolvedCall) Key() string {
	return u.CallerID + "#" + u.MethodName + "@" + fmt.Sprintf("%d", u.Line)
}

// InstantiationKind distinguishes a direct constructor call from a
// factory function whose declared return type names the constructed type.
type InstantiationKind string

const (
	InstantiationConstructor InstantiationKind = "constructor"
	InstantiationFactory     InstantiationKind = "factory"
)

// InstantiationEvent records that some class was constructed at a program
// point. It is the sole input to RTAStage.
type InstantiationEvent struct {
	TypeName string
	FilePath string
	Line     int
	Kind     InstantiationKind
}

// CHACandidate is one method body CHAStage considers a possible target of
// a virtual call, paired with the declaring class.
type CHACandidate struct {
	ClassName  string
	FunctionID string
}

// ClassHierarchy is the read-only capability CHAStage and RTAStage use to
// enumerate subtypes/implementers of a receiver type, and to expand
// instantiated classes to the interfaces they implement.
type ClassHierarchy interface {
	// SubtypesOf returns every class that is, or transitively extends /
	// implements, the given class or interface name. DeclaredClassHierarchy
	// includes the name itself, whether it names a class or an interface.
	SubtypesOf(name string) []string
	// InterfacesOf returns the interfaces a concrete class declares
	// itself as implementing.
	InterfacesOf(className string) []string
	// IsAbstract reports whether a class is declared abstract.
	IsAbstract(className string) bool
	// IsInterface reports whether the name refers to an interface rather
	// than a concrete class.
	IsInterface(name string) bool
}
