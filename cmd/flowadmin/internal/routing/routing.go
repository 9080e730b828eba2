// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package routing maps console paths to views.

# Problem Statement

Controllers express navigation as command arrays (["/settings",
"parameter-providers", id]) and the CLI accepts paths typed by the operator
("/cluster", "/settings/parameter-providers/abc/edit"). Both need the same
static table to decide which view a path lands on and which ids it carries.

# Solution

A Route tree walked segment by segment:

	/cluster                    → redirect "" → nodes   (PathMatch "full")
	/cluster/nodes/:id          → ViewClusterNodes {id}
	/settings/parameter-providers/:id/edit
	                            → ViewParameterProviderEdit {id}

Segments starting with ':' bind a parameter. A redirect is re-resolved at the
level that declared it with the remaining segments appended. Children are tried
before the parent view so the most specific route wins.
*/
package routing

import (
	"errors"
	"fmt"
	"strings"
)

// View names a screen of the console.
type View string

const (
	ViewSettings                     View = "settings"
	ViewGeneral                      View = "general"
	ViewManagementControllerServices View = "management-controller-services"
	ViewParameterProviders           View = "parameter-providers"
	ViewParameterProviderEdit        View = "parameter-provider-edit"
	ViewParameterProviderAdvanced    View = "parameter-provider-advanced"
	ViewParameterProviderFetch       View = "parameter-provider-fetch"
	ViewClusterNodes                 View = "cluster-nodes"
	ViewClusterSystem                View = "cluster-system"
	ViewClusterJVM                   View = "cluster-jvm"
	ViewGlobalAccessPolicies         View = "global-access-policies"
	ViewComponentAccessPolicies      View = "component-access-policies"
	ViewProcessGroup                 View = "process-group"
	ViewParameterContexts            View = "parameter-contexts"
)

// PathMatchFull makes a route match only when no segments remain after it.
const PathMatchFull = "full"

// maxRedirects bounds redirect chains.
const maxRedirects = 16

var (
	// ErrNoRoute is returned when no route matches a path.
	ErrNoRoute = errors.New("no route")

	// ErrRedirectLoop is returned when redirects do not settle.
	ErrRedirectLoop = errors.New("redirect loop")
)

// Route is one entry of a routing table.
type Route struct {
	Path       string
	View       View
	RedirectTo string
	PathMatch  string
	Children   []Route
}

// Match is the outcome of resolving a path.
type Match struct {
	View   View
	Params map[string]string
	// Path is the canonical path after redirects.
	Path string
}

// Param returns a bound parameter or "".
func (m Match) Param(name string) string {
	return m.Params[name]
}

// Resolve finds the view for path in table.
//
// # Inputs
//
//   - table: Routes of the top level.
//   - path: Slash separated; leading, trailing and doubled slashes are ignored.
//
// # Outputs
//
//   - Match: View, bound parameters and canonical path.
//   - error: ErrNoRoute or ErrRedirectLoop, wrapped with the path.
//
// # Examples
//
//	m, err := routing.Resolve(routing.App, "/cluster")
//	// m.View == ViewClusterNodes, m.Path == "/cluster/nodes"
func Resolve(table []Route, path string) (Match, error) {
	r := resolver{}
	m, ok, err := r.resolve(table, split(path), nil, map[string]string{})
	if err != nil {
		return Match{}, fmt.Errorf("resolve %q: %w", path, err)
	}
	if !ok {
		return Match{}, fmt.Errorf("resolve %q: %w", path, ErrNoRoute)
	}
	return m, nil
}

type resolver struct {
	redirects int
}

func (r *resolver) resolve(routes []Route, segs, consumed []string, params map[string]string) (Match, bool, error) {
	for _, route := range routes {
		rsegs := split(route.Path)
		bound, ok := matchPrefix(rsegs, segs)
		if !ok {
			continue
		}
		rest := segs[len(rsegs):]
		if route.PathMatch == PathMatchFull && len(rest) > 0 {
			continue
		}

		if route.RedirectTo != "" {
			r.redirects++
			if r.redirects > maxRedirects {
				return Match{}, false, ErrRedirectLoop
			}
			next := append(split(route.RedirectTo), rest...)
			return r.resolve(routes, next, consumed, params)
		}

		p := merge(params, bound)
		here := append(append([]string{}, consumed...), segs[:len(rsegs)]...)

		if len(route.Children) > 0 {
			m, ok, err := r.resolve(route.Children, rest, here, p)
			if err != nil {
				return Match{}, false, err
			}
			if ok {
				return m, true, nil
			}
		}
		if len(rest) == 0 && route.View != "" {
			return Match{View: route.View, Params: p, Path: "/" + strings.Join(here, "/")}, true, nil
		}
	}
	return Match{}, false, nil
}

func matchPrefix(pattern, segs []string) (map[string]string, bool) {
	if len(pattern) > len(segs) {
		return nil, false
	}
	var bound map[string]string
	for i, p := range pattern {
		if name, ok := strings.CutPrefix(p, ":"); ok {
			if bound == nil {
				bound = map[string]string{}
			}
			bound[name] = segs[i]
			continue
		}
		if p != segs[i] {
			return nil, false
		}
	}
	return bound, true
}

func merge(a, b map[string]string) map[string]string {
	out := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func split(path string) []string {
	var out []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
