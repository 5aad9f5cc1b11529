// Package types provides common type definitions used throughout tmplc.
// This package contains shared types to avoid circular dependencies between
// the scanner, the registry and the build pipeline.
package types

import "time"

// TemplateInfo describes one discovered AST document: where it lives, how it
// relates to other documents and what the generated code will be called.
type TemplateInfo struct {
	// Name is the slash separated path relative to the view root
	// (e.g. "pages/home.yaml"). It identifies the template everywhere.
	Name string
	// FilePath is the operating system path of the document.
	FilePath string
	// TypeName is the Go type the generated methods attach to.
	TypeName string
	// Hash is a CRC32 checksum of the document, used for change detection.
	Hash string
	// LastMod is the modification time reported by the file system.
	LastMod time.Time
	// IsLayout marks documents that render a body, which are wrapped around
	// other templates rather than generated alone.
	IsLayout bool
	// Extends is the layout path named by an extends directive, if any.
	Extends string
	// Sections lists the section names the template declares, sorted.
	Sections []string
	// Renders lists the section names a layout pulls in, sorted.
	Renders []string
	// Uses lists the component document paths imported, sorted.
	Uses []string
	// Dependencies is Extends plus Uses, sorted and unique.
	Dependencies []string
}

// DependsOn reports whether name is a direct dependency.
func (t *TemplateInfo) DependsOn(name string) bool {
	for _, dep := range t.Dependencies {
		if dep == name {
			return true
		}
	}
	return false
}

// EventType represents the type of template change event.
type EventType string

const (
	EventTypeAdded   EventType = "added"
	EventTypeUpdated EventType = "updated"
	EventTypeRemoved EventType = "removed"
)

// TemplateEvent represents a change in the template registry, used to
// trigger regeneration in watch mode.
type TemplateEvent struct {
	// Type indicates the kind of change (added, updated, removed)
	Type EventType
	// Template contains the template information
	Template *TemplateInfo
	// Timestamp records when the event occurred
	Timestamp time.Time
}
