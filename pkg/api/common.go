// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRevisionMismatch is returned when a mutation presents a revision version
// that differs from the current one.
var ErrRevisionMismatch = errors.New("revision mismatch")

// Revision is the optimistic-locking token attached to every mutable entity.
type Revision struct {
	Version      int64  `json:"version" yaml:"version" validate:"gte=0"`
	ClientID     string `json:"clientId,omitempty" yaml:"client_id,omitempty"`
	LastModifier string `json:"lastModifier,omitempty" yaml:"last_modifier,omitempty"`
}

// CheckRevision compares a presented revision with the current one.
//
// # Description
//
// Returns ErrRevisionMismatch (wrapped with both versions) when the versions
// differ. Client ids are informational and never compared.
//
// # Inputs
//
//   - current: The revision the server holds.
//   - presented: The revision sent with the mutation.
//
// # Outputs
//
//   - error: nil when the versions match.
func CheckRevision(current, presented Revision) error {
	if current.Version != presented.Version {
		return fmt.Errorf("%w: current version %d, presented %d",
			ErrRevisionMismatch, current.Version, presented.Version)
	}
	return nil
}

// Next returns the revision that follows r after a successful mutation by clientID.
func (r Revision) Next(clientID string) Revision {
	return Revision{
		Version:      r.Version + 1,
		ClientID:     clientID,
		LastModifier: r.LastModifier,
	}
}

// Permissions describes what the current user may do with an entity.
type Permissions struct {
	CanRead  bool `json:"canRead" yaml:"can_read"`
	CanWrite bool `json:"canWrite" yaml:"can_write"`
}

// ReadWrite reports whether both read and write are granted.
func (p Permissions) ReadWrite() bool {
	return p.CanRead && p.CanWrite
}

// Bundle identifies the extension bundle a component type ships in.
type Bundle struct {
	Group    string `json:"group" yaml:"group" validate:"required"`
	Artifact string `json:"artifact" yaml:"artifact" validate:"required"`
	Version  string `json:"version" yaml:"version" validate:"required"`
}

// String renders the bundle as group:artifact:version.
func (b Bundle) String() string {
	return b.Group + ":" + b.Artifact + ":" + b.Version
}

// DocumentedType is an extension type the server can instantiate.
type DocumentedType struct {
	Type        string   `json:"type" yaml:"type"`
	Bundle      Bundle   `json:"bundle" yaml:"bundle"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Restricted  bool     `json:"restricted,omitempty" yaml:"restricted,omitempty"`
}

// ShortName returns the type name without its package prefix.
func (d DocumentedType) ShortName() string {
	if i := strings.LastIndex(d.Type, "."); i >= 0 {
		return d.Type[i+1:]
	}
	return d.Type
}

// Bulletin is a message the server attached to a component.
type Bulletin struct {
	ID        int64  `json:"id"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
}

// BulletinEntity wraps a bulletin with its read permission.
type BulletinEntity struct {
	ID       int64     `json:"id"`
	CanRead  bool      `json:"canRead"`
	Bulletin *Bulletin `json:"bulletin,omitempty"`
}

// PropertyDescriptor documents one configurable property of a component.
type PropertyDescriptor struct {
	Name                        string           `json:"name"`
	DisplayName                 string           `json:"displayName,omitempty"`
	Description                 string           `json:"description,omitempty"`
	DefaultValue                string           `json:"defaultValue,omitempty"`
	IdentifiesControllerService string           `json:"identifiesControllerService,omitempty"`
	Required                    bool             `json:"required,omitempty"`
	Sensitive                   bool             `json:"sensitive,omitempty"`
	Dynamic                     bool             `json:"dynamic,omitempty"`
	SupportsEL                  bool             `json:"supportsEl,omitempty"`
	AllowableValues             []AllowableValue `json:"allowableValues,omitempty"`
}

// AllowableValue is one permitted value of an enumerated property.
type AllowableValue struct {
	Value       string `json:"value"`
	DisplayName string `json:"displayName,omitempty"`
	Description string `json:"description,omitempty"`
}

// HasDescription reports whether the descriptor has a non-blank description.
func (d PropertyDescriptor) HasDescription() bool {
	return !isBlank(d.Description)
}

// HasDefaultValue reports whether the descriptor has a non-blank default.
func (d PropertyDescriptor) HasDefaultValue() bool {
	return !isBlank(d.DefaultValue)
}

// IdentifiesService reports whether the property references a controller service API.
func (d PropertyDescriptor) IdentifiesService() bool {
	return !isBlank(d.IdentifiesControllerService)
}

// Label returns the display name, falling back to the property name.
func (d PropertyDescriptor) Label() string {
	if !isBlank(d.DisplayName) {
		return d.DisplayName
	}
	return d.Name
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
