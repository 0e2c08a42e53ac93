package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"unicode"

	"github.com/rainbowassets/gamefsm/envutil"
)

// Alignment of text inside a banner.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

const (
	boxTopLeft     = "╒"
	boxBottomLeft  = "└"
	boxTopRight    = "╕"
	boxBottomRight = "┘"
	boxSide        = "│"
	boxTop         = "═"
	boxBottom      = "─"
	ellipsis       = "…"

	// DefaultTerminalWidth is used when the terminal cannot be measured.
	DefaultTerminalWidth = 80
)

// Banner boxes s at the terminal's width. FSM_NO_BANNER=true prints s
// unboxed.
func Banner(ctx context.Context, s string, align Alignment) string {
	if envutil.Bool(ctx, "FSM_NO_BANNER", envutil.Default(false)).ValueOrElse(false) {
		return s + "\n"
	}

	return Box(s, TerminalWidth(ctx), align)
}

// Box draws s, one box line per text line, width columns wide. Lines that
// do not fit are truncated with an ellipsis.
func Box(s string, width int, align Alignment) string {
	inner := width - 2
	if inner <= 0 {
		return ""
	}

	var sb strings.Builder

	sb.WriteString(boxTopLeft + strings.Repeat(boxTop, inner) + boxTopRight + "\n")

	for _, line := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		sb.WriteString(boxSide + pad(line, inner, align) + boxSide + "\n")
	}

	sb.WriteString(boxBottomLeft + strings.Repeat(boxBottom, inner) + boxBottomRight + "\n")

	return sb.String()
}

func graphicLen(s string) int {
	n := 0

	for _, r := range s {
		if unicode.IsGraphic(r) {
			n++
		}
	}

	return n
}

func truncate(s string, n int) string {
	var (
		sb    strings.Builder
		count int
	)

	for _, r := range s {
		if unicode.IsGraphic(r) {
			if count == n {
				break
			}

			count++
		}

		sb.WriteRune(r)
	}

	return sb.String()
}

func pad(text string, width int, align Alignment) string {
	length := graphicLen(text)
	if length > width {
		text = truncate(text, width-1) + ellipsis
		length = width
	}

	diff := width - length

	switch align {
	case AlignCenter:
		left := diff / 2

		return strings.Repeat(" ", left) + text + strings.Repeat(" ", diff-left)
	case AlignRight:
		return strings.Repeat(" ", diff) + text
	default:
		return text + strings.Repeat(" ", diff)
	}
}

// TerminalWidth is $COLUMNS, else the width stty reports, else
// DefaultTerminalWidth.
func TerminalWidth(ctx context.Context) int {
	if cols, err := envutil.Int(ctx, "COLUMNS").Value(); err == nil && cols > 0 {
		return cols
	}

	if _, cols, err := terminalSize(); err == nil && cols > 0 {
		return cols
	}

	return DefaultTerminalWidth
}

func terminalSize() (int, int, error) {
	tty, err := os.Open("/dev/tty")
	if err != nil {
		return 0, 0, err
	}

	defer func() { _ = tty.Close() }()

	cmd := exec.Command("stty", "size")
	cmd.Stdin = tty

	out, err := cmd.Output()
	if err != nil {
		return 0, 0, err
	}

	return parseSize(string(out))
}

// parseSize parses stty's "rows columns" output.
func parseSize(out string) (int, int, error) {
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unexpected stty output %q", out) //nolint:err113
	}

	rows, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, err
	}

	cols, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, err
	}

	return rows, cols, nil
}
