// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// =============================================================================
// Palette
// =============================================================================

var (
	ColorPrimary = lipgloss.Color("#20B9B4")
	ColorBright  = lipgloss.Color("#2CD7C7")
	ColorBorder  = lipgloss.Color("#16858E")
	ColorSlate   = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles holds the shared lipgloss styles.
var Styles = struct {
	Title     lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	Box        lipgloss.Style
	WarningBox lipgloss.Style
	ErrorBox   lipgloss.Style

	Header lipgloss.Style
	Cell   lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorBright),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorBright).Bold(true),

	Box:        lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(ColorBorder).Padding(0, 1),
	WarningBox: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(ColorWarning).Padding(0, 1),
	ErrorBox:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(ColorError).Padding(0, 1),

	Header: lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary).Padding(0, 1),
	Cell:   lipgloss.NewStyle().Padding(0, 1),
}

// Icon is a status glyph.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render returns the icon in its status colour.
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconPending:
		return Styles.Muted.Render(string(i))
	default:
		return string(i)
	}
}

// =============================================================================
// Output
// =============================================================================

// Output writes styled messages. Results go to Out; warnings and errors in
// machine mode go to Err so that Out stays parseable.
//
// Thread Safety: not safe for concurrent use; one command owns one Output.
type Output struct {
	Out io.Writer
	Err io.Writer
}

// Stdout returns an Output on the process streams.
func Stdout() *Output {
	return &Output{Out: os.Stdout, Err: os.Stderr}
}

func machine() bool {
	return GetPersonality().Level == PersonalityMachine
}

func (o *Output) Title(text string) {
	if machine() {
		return
	}
	fmt.Fprintln(o.Out, Styles.Title.Render(text))
}

func (o *Output) Success(text string) {
	switch GetPersonality().Level {
	case PersonalityMachine:
		fmt.Fprintf(o.Out, "OK: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(o.Out, "%s %s\n", IconSuccess.Render(), text)
	default:
		fmt.Fprintf(o.Out, "%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
	}
}

func (o *Output) Warning(text string) {
	switch GetPersonality().Level {
	case PersonalityMachine:
		fmt.Fprintf(o.Err, "WARN: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(o.Out, "%s %s\n", IconWarning.Render(), text)
	default:
		fmt.Fprintf(o.Out, "%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
	}
}

func (o *Output) Error(text string) {
	switch GetPersonality().Level {
	case PersonalityMachine:
		fmt.Fprintf(o.Err, "ERROR: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(o.Err, "%s %s\n", IconError.Render(), text)
	default:
		fmt.Fprintf(o.Err, "%s %s\n", IconError.Render(), Styles.Error.Render(text))
	}
}

func (o *Output) Info(text string) {
	if machine() {
		fmt.Fprintln(o.Out, text)
		return
	}
	fmt.Fprintf(o.Out, "%s %s\n", Styles.Muted.Render("│"), text)
}

// Tip prints a hint when tips are enabled. Nothing in machine mode.
func (o *Output) Tip(text string) {
	p := GetPersonality()
	if p.Level == PersonalityMachine || !p.ShowTips {
		return
	}
	fmt.Fprintln(o.Out, Styles.Muted.Render("tip: "+text))
}

// Box prints content under a title in a bordered box.
func (o *Output) Box(title, content string) {
	if machine() {
		fmt.Fprintf(o.Out, "%s: %s\n", title, content)
		return
	}
	fmt.Fprintln(o.Out, Styles.Box.Width(72).Render(Styles.Title.Render(title)+"\n"+content))
}

// WarningBox is Box in warning colours. Machine output goes to Err.
func (o *Output) WarningBox(title, content string) {
	if machine() {
		fmt.Fprintf(o.Err, "WARN %s: %s\n", title, content)
		return
	}
	fmt.Fprintln(o.Out, Styles.WarningBox.Width(72).Render(Styles.Warning.Bold(true).Render(title)+"\n"+content))
}

// ErrorBox is Box in error colours, always on Err.
func (o *Output) ErrorBox(title, content string) {
	if machine() {
		fmt.Fprintf(o.Err, "ERROR %s: %s\n", title, content)
		return
	}
	fmt.Fprintln(o.Err, Styles.ErrorBox.Width(72).Render(Styles.Error.Bold(true).Render(title)+"\n"+content))
}

// KeyValues prints aligned "key: value" lines in the given order.
func (o *Output) KeyValues(pairs [][2]string) {
	width := 0
	for _, p := range pairs {
		width = max(width, len(p[0]))
	}
	for _, p := range pairs {
		if machine() {
			fmt.Fprintf(o.Out, "%s\t%s\n", p[0], p[1])
			continue
		}
		fmt.Fprintf(o.Out, "%s  %s\n", Styles.Muted.Render(fmt.Sprintf("%-*s", width, p[0])), p[1])
	}
}

// Table prints rows under headers. Machine mode prints tab-separated lines
// with a header line first.
func (o *Output) Table(headers []string, rows [][]string) {
	if machine() {
		fmt.Fprintln(o.Out, strings.Join(headers, "\t"))
		for _, r := range rows {
			fmt.Fprintln(o.Out, strings.Join(r, "\t"))
		}
		return
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorBorder)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return Styles.Header
			}
			return Styles.Cell
		})
	fmt.Fprintln(o.Out, t.Render())
}

// ProgressBar renders current/total as a bar of width cells.
func ProgressBar(current, total, width int) string {
	if machine() {
		return fmt.Sprintf("%d/%d", current, total)
	}
	pct := 0.0
	if total > 0 {
		pct = min(1, float64(current)/float64(total))
	}
	filled := int(pct * float64(width))
	bar := Styles.Success.Render(strings.Repeat("█", filled)) +
		Styles.Muted.Render(strings.Repeat("░", max(0, width-filled)))
	return fmt.Sprintf("%s %3.0f%%", bar, pct*100)
}
