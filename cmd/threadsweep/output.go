package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// colorChoice holds the --color/--no-color pair of a command.
type colorChoice struct {
	force   bool
	disable bool
}

func (c *colorChoice) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&c.force, "color", false, "always colour output")
	cmd.Flags().BoolVar(&c.disable, "no-color", false, "never colour output")
}

// resolve reports whether output to out should be coloured.
func (c colorChoice) resolve(out io.Writer) bool {
	switch {
	case c.disable:
		return false
	case c.force:
		return true
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// writeJSON prints v indented, highlighted when color is set.
func writeJSON(w io.Writer, v any, color bool) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	if color {
		if err := quick.Highlight(w, string(data)+"\n", "json", "terminal256", "monokai"); err == nil {
			return nil
		}
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// terminalWidth is the width of out when it is a terminal, else $COLUMNS or 80.
func terminalWidth(out io.Writer) int {
	if f, ok := out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			return w
		}
	}
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if v, err := strconv.Atoi(cols); err == nil && v > 0 {
			return v
		}
	}
	return 80
}
