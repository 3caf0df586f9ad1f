package revdiff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// FormatOptions configures diff output formatting.
type FormatOptions struct {
	// StartDelete is the string to mark the beginning of deleted text.
	// Default: "[-"
	StartDelete string

	// StopDelete is the string to mark the end of deleted text.
	// Default: "-]"
	StopDelete string

	// StartInsert is the string to mark the beginning of inserted text.
	// Default: "{+"
	StartInsert string

	// StopInsert is the string to mark the end of inserted text.
	// Default: "+}"
	StopInsert string

	// NoDeleted, when true, suppresses deleted words from output.
	NoDeleted bool

	// NoInserted, when true, suppresses inserted words from output.
	NoInserted bool

	// NoCommon, when true, suppresses unchanged words and matched sentences.
	NoCommon bool

	// UseColor enables ANSI color output. When true, DeleteColor and InsertColor
	// are used instead of text markers.
	UseColor bool

	// DeleteColor is the ANSI escape sequence for deleted text color.
	DeleteColor string

	// InsertColor is the ANSI escape sequence for inserted text color.
	InsertColor string

	// ColorReset is the ANSI escape sequence to reset colors.
	// Default: "\033[0m"
	ColorReset string

	// AggregateChanges, when true, combines adjacent changes of the same type.
	AggregateChanges bool

	// LessMode uses overstrike underlining for deleted text (for less -r).
	LessMode bool

	// PrinterMode uses overstrike bold for inserted text (for printing).
	PrinterMode bool

	// CharLevel renders edited sentences at character granularity instead
	// of word granularity.
	CharLevel bool

	// ShowDistance appends the alignment distance to edited and replaced
	// sentences.
	ShowDistance bool
}

// ANSI escape code constants
const (
	ANSIReset       = "\033[0m"
	ANSIDeleteColor = "\033[0;31;1m" // bold red
	ANSIInsertColor = "\033[0;32;1m" // bold green
	ANSIChangeColor = "\033[0;33;1m" // bold yellow, for line markers
	ANSIBold        = "\033[1m"
)

// ForegroundColors maps color names to ANSI foreground escape codes.
var ForegroundColors = map[string]string{
	"black":         "\033[30m",
	"red":           "\033[31m",
	"green":         "\033[32m",
	"yellow":        "\033[33m",
	"blue":          "\033[34m",
	"magenta":       "\033[35m",
	"cyan":          "\033[36m",
	"white":         "\033[37m",
	"brightblack":   "\033[90m",
	"brightred":     "\033[91m",
	"brightgreen":   "\033[92m",
	"brightyellow":  "\033[93m",
	"brightblue":    "\033[94m",
	"brightmagenta": "\033[95m",
	"brightcyan":    "\033[96m",
	"brightwhite":   "\033[97m",
}

// BackgroundColors maps color names to ANSI background escape codes.
var BackgroundColors = map[string]string{
	"black":         "\033[40m",
	"red":           "\033[41m",
	"green":         "\033[42m",
	"yellow":        "\033[43m",
	"blue":          "\033[44m",
	"magenta":       "\033[45m",
	"cyan":          "\033[46m",
	"white":         "\033[47m",
	"brightblack":   "\033[100m",
	"brightred":     "\033[101m",
	"brightgreen":   "\033[102m",
	"brightyellow":  "\033[103m",
	"brightblue":    "\033[104m",
	"brightmagenta": "\033[105m",
	"brightcyan":    "\033[106m",
	"brightwhite":   "\033[107m",
}

// ColorNames returns a list of all available color names.
func ColorNames() []string {
	return []string{
		"black", "red", "green", "yellow", "blue", "magenta", "cyan", "white",
		"brightblack", "brightred", "brightgreen", "brightyellow",
		"brightblue", "brightmagenta", "brightcyan", "brightwhite",
	}
}

// ParseColor parses a color specification and returns the ANSI escape sequence.
// The spec can be:
//   - A single color name: "red" -> foreground red
//   - Foreground:background: "red:white" -> red text on white background
//   - Empty string returns empty string (no color)
func ParseColor(spec string) (string, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return "", nil
	}

	parts := strings.SplitN(spec, ":", 2)
	fgName := strings.ToLower(strings.TrimSpace(parts[0]))

	var result string
	if fgName != "" {
		fg, ok := ForegroundColors[fgName]
		if !ok {
			return "", fmt.Errorf("unknown color: %s", fgName)
		}
		result = fg
	}

	if len(parts) > 1 {
		bgName := strings.ToLower(strings.TrimSpace(parts[1]))
		if bgName != "" {
			bg, ok := BackgroundColors[bgName]
			if !ok {
				return "", fmt.Errorf("unknown background color: %s", bgName)
			}
			result += bg
		}
	}

	return result, nil
}

// ParseColorSpec parses "delete_color,insert_color" where each color is
// "fg" or "fg:bg". With a single color, insertions keep the default green.
func ParseColorSpec(spec string) (deleteColor, insertColor string, err error) {
	parts := strings.SplitN(spec, ",", 2)

	deleteColor, err = ParseColor(parts[0])
	if err != nil {
		return "", "", fmt.Errorf("delete color: %w", err)
	}

	if len(parts) > 1 {
		insertColor, err = ParseColor(parts[1])
		if err != nil {
			return "", "", fmt.Errorf("insert color: %w", err)
		}
	} else {
		insertColor = ANSIInsertColor
	}

	return deleteColor, insertColor, nil
}

// DefaultFormatOptions returns FormatOptions with default settings.
func DefaultFormatOptions() FormatOptions {
	return FormatOptions{
		StartDelete:      "[-",
		StopDelete:       "-]",
		StartInsert:      "{+",
		StopInsert:       "+}",
		ColorReset:       ANSIReset,
		DeleteColor:      ANSIDeleteColor,
		InsertColor:      ANSIInsertColor,
		AggregateChanges: true,
	}
}

// OverstrikeUnderline returns text with overstrike underlining (_\bchar for each char).
// This is used for less -r mode to highlight deleted text.
func OverstrikeUnderline(text string) string {
	var sb strings.Builder
	for _, r := range text {
		sb.WriteRune('_')
		sb.WriteRune('\b')
		sb.WriteRune(r)
	}
	return sb.String()
}

// OverstrikeBold returns text with overstrike bold (char\bchar for each char).
// This is used for printer mode to highlight inserted text.
func OverstrikeBold(text string) string {
	var sb strings.Builder
	for _, r := range text {
		sb.WriteRune(r)
		sb.WriteRune('\b')
		sb.WriteRune(r)
	}
	return sb.String()
}

// formatToken wraps a single token with the markers or colors for its type.
func formatToken(d Diff, opts FormatOptions) string {
	switch d.Type {
	case Equal:
		if opts.NoCommon {
			return ""
		}
		return d.Token
	case Delete:
		if opts.NoDeleted {
			return ""
		}
		if opts.LessMode || opts.PrinterMode {
			return OverstrikeUnderline(d.Token)
		}
		if opts.UseColor {
			return opts.DeleteColor + d.Token + opts.ColorReset
		}
		return opts.StartDelete + d.Token + opts.StopDelete
	case Insert:
		if opts.NoInserted {
			return ""
		}
		if opts.LessMode || opts.PrinterMode {
			return OverstrikeBold(d.Token)
		}
		if opts.UseColor {
			return opts.InsertColor + d.Token + opts.ColorReset
		}
		return opts.StartInsert + d.Token + opts.StopInsert
	}
	return ""
}

// FormatDiffs formats word diffs with markers or colors, one space between
// rendered tokens. Without AggregateChanges, substitutions are interleaved
// word by word.
func FormatDiffs(diffs []Diff, opts FormatOptions) string {
	opts = withMarkerDefaults(opts)
	if opts.AggregateChanges {
		diffs = AggregateDiffs(diffs)
	} else {
		diffs = InterleaveDiffs(diffs)
	}

	var parts []string
	for _, d := range diffs {
		if s := formatToken(d, opts); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// formatChars formats character diffs, concatenated without separators.
func formatChars(diffs []Diff, opts FormatOptions) string {
	var sb strings.Builder
	for _, d := range diffs {
		sb.WriteString(formatToken(d, opts))
	}
	return sb.String()
}

// CharDiffs computes a character-level diff between two strings, cleaned up
// for human reading.
func CharDiffs(oldText, newText string) []Diff {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldText, newText, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	result := make([]Diff, 0, len(diffs))
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			result = append(result, Diff{Type: Equal, Token: d.Text})
		case diffmatchpatch.DiffDelete:
			result = append(result, Diff{Type: Delete, Token: d.Text})
		case diffmatchpatch.DiffInsert:
			result = append(result, Diff{Type: Insert, Token: d.Text})
		}
	}
	return result
}

// FormatResult renders a diff result sentence by sentence: sentences of the
// new revision in reading order, then sentences deleted from the old one.
// Unchanged lines are prefixed with "  ", changed lines with "| ".
func FormatResult(res *Result, opts FormatOptions) string {
	opts = withMarkerDefaults(opts)

	changedPrefix := "| "
	if opts.UseColor {
		changedPrefix = ANSIChangeColor + "| " + opts.ColorReset
	}

	var lines []string
	for _, c := range res.Sentences {
		var body string
		switch c.Kind {
		case Matched:
			if opts.NoCommon {
				continue
			}
			lines = append(lines, "  "+surfaceText(c.New.Words))
			continue
		case Edited:
			if opts.CharLevel {
				body = formatChars(CharDiffs(surfaceText(c.Old.Words), surfaceText(c.New.Words)), opts)
			} else {
				body = FormatDiffs(DiffWords(c.Old.Words, c.New.Words), opts)
			}
		case Replaced:
			body = FormatDiffs([]Diff{
				{Type: Delete, Token: surfaceText(c.Old.Words)},
				{Type: Insert, Token: surfaceText(c.New.Words)},
			}, opts)
		case Added:
			body = FormatDiffs([]Diff{{Type: Insert, Token: surfaceText(c.New.Words)}}, opts)
		case Deleted:
			body = FormatDiffs([]Diff{{Type: Delete, Token: surfaceText(c.Old.Words)}}, opts)
		}
		if body == "" {
			continue
		}
		if opts.ShowDistance && (c.Kind == Edited || c.Kind == Replaced) {
			body += fmt.Sprintf("  (distance %d, ratio %.2f)", c.Distance, c.Ratio)
		}
		lines = append(lines, changedPrefix+body)
	}
	return strings.Join(lines, "\n")
}

// withMarkerDefaults fills in empty markers and color reset.
func withMarkerDefaults(opts FormatOptions) FormatOptions {
	if opts.StartDelete == "" && opts.StopDelete == "" {
		opts.StartDelete = "[-"
		opts.StopDelete = "-]"
	}
	if opts.StartInsert == "" && opts.StopInsert == "" {
		opts.StartInsert = "{+"
		opts.StopInsert = "+}"
	}
	if opts.ColorReset == "" {
		opts.ColorReset = ANSIReset
	}
	return opts
}

// surfaceText joins the surface forms of words with single spaces.
func surfaceText(words []Word) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.Surface
	}
	return strings.Join(parts, " ")
}
