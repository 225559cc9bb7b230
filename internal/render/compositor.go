// Package render draws the composed cat frame and stat overlay as
// terminal output. It stands in for the hardware display panel.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"deskcat/internal/device"
)

const fallbackWidth = 60

// Compositor renders layer sets as ASCII art. One frame replaces the
// previous one in place using cursor movement, so the cat animates
// rather than scrolls.
type Compositor struct {
	out       io.Writer
	catStyle  lipgloss.Style
	statStyle lipgloss.Style
	drawn     int
}

// NewCompositor builds a compositor writing to out.
func NewCompositor(out io.Writer) *Compositor {
	return &Compositor{
		out:       out,
		catStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		statStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	}
}

// Render draws one frame.
func (c *Compositor) Render(layers device.LayerSet, display device.DisplayModel, settings device.Settings) error {
	width := c.width()
	lines := frameLines(layers)
	lines = append(lines, statLine(display, settings))

	var b strings.Builder
	if c.drawn > 0 {
		fmt.Fprintf(&b, "\033[%dA", c.drawn)
	}
	for i, line := range lines {
		style := c.catStyle
		if i == len(lines)-1 {
			style = c.statStyle
		}
		b.WriteString("\033[2K")
		b.WriteString(style.Render(center(line, width)))
		b.WriteString("\n")
	}
	c.drawn = len(lines)
	_, err := io.WriteString(c.out, b.String())
	return err
}

func (c *Compositor) width() int {
	if f, ok := c.out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return fallbackWidth
}

// frameLines composes the five sprite layers back to front into rows
// of ASCII art.
func frameLines(l device.LayerSet) []string {
	ears := `  /\_/\  `
	if l.Body == device.SpriteBodyEarTwitch {
		ears = ` >\_/\   `
	}

	face := ` ( o.o ) `
	switch l.Face {
	case device.SpriteFaceHappy:
		face = ` ( ^.^ ) `
	case device.SpriteFaceSleepy:
		face = ` ( -.- ) `
	case device.SpriteFaceBlink:
		face = ` ( -_- ) `
	}

	var paws string
	switch l.Paws {
	case device.SpritePawsUp:
		paws = `  /   \  `
	case device.SpritePawLeftDown:
		paws = ` _/   \  `
	case device.SpritePawRightDown:
		paws = `  /   \_ `
	default:
		paws = `         `
	}

	var effects string
	switch l.Effects {
	case device.SpriteEffectClickLeft:
		effects = `*tak*    `
	case device.SpriteEffectClickRight:
		effects = `    *tak*`
	case device.SpriteSleepy1:
		effects = `      z  `
	case device.SpriteSleepy2:
		effects = `     Zz  `
	case device.SpriteSleepy3:
		effects = `    ZZz  `
	default:
		effects = `         `
	}

	table := `=========`
	if l.Table == device.SpriteNone {
		table = `         `
	}

	return []string{effects, ears, face, paws, table}
}

// statLine formats the overlay respecting the display toggles.
func statLine(d device.DisplayModel, s device.Settings) string {
	var parts []string
	if s.ShowCPU {
		parts = append(parts, fmt.Sprintf("CPU %d%%", d.CPU))
	}
	if s.ShowRAM {
		parts = append(parts, fmt.Sprintf("RAM %d%%", d.RAM))
	}
	if s.ShowWPM {
		parts = append(parts, fmt.Sprintf("%d WPM", d.WPM))
	}
	if s.ShowTime {
		parts = append(parts, clockText(d.Hour, d.Minute, s.TimeFormat24h))
	}
	return strings.Join(parts, "  ")
}

func clockText(hour, minute int, twentyFour bool) string {
	if twentyFour {
		return fmt.Sprintf("%02d:%02d", hour, minute)
	}
	suffix := "AM"
	h := hour
	if h >= 12 {
		suffix = "PM"
	}
	h = h % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, minute, suffix)
}

// center pads a line to the given width.
func center(line string, width int) string {
	w := runewidth.StringWidth(line)
	if w >= width {
		return line
	}
	pad := (width - w) / 2
	return strings.Repeat(" ", pad) + line
}
