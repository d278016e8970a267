// This file is part of Magpie2600.
//
// Magpie2600 is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Magpie2600 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Magpie2600.  If not, see <https://www.gnu.org/licenses/>.

// Package ui provides the interactive terminal used by the play mode: cbreak
// input, so single keypresses arrive without waiting for a return key, and
// styled output.
package ui

import (
	"fmt"
	"os"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
)

// Term wraps the controlling terminal. Keypresses arrive on the channel
// returned by Keys(). Restore() must be called before the program exits or
// the terminal is left in cbreak mode.
type Term struct {
	input  *os.File
	output *os.File

	canAttr    unix.Termios
	cbreakAttr unix.Termios

	styles styles
	keys   chan rune
}

// NewTerm is the preferred method of initialisation for the Term type. The
// terminal is placed in cbreak mode immediately.
func NewTerm() (*Term, error) {
	t := &Term{
		input:  os.Stdin,
		output: os.Stdout,
		styles: newStyles(),
		keys:   make(chan rune),
	}

	if err := termios.Tcgetattr(t.input.Fd(), &t.canAttr); err != nil {
		return nil, fmt.Errorf("ui: %w", err)
	}

	t.cbreakAttr = t.canAttr
	termios.Cfmakecbreak(&t.cbreakAttr)

	if err := termios.Tcsetattr(t.input.Fd(), termios.TCIFLUSH, &t.cbreakAttr); err != nil {
		return nil, fmt.Errorf("ui: %w", err)
	}

	// the reader goroutine runs until stdin closes. there is no way to
	// interrupt the blocking read so the goroutine is simply abandoned at
	// program end
	go func() {
		b := make([]byte, 1)
		for {
			n, err := t.input.Read(b)
			if err != nil {
				close(t.keys)
				return
			}
			if n == 1 {
				t.keys <- rune(b[0])
			}
		}
	}()

	return t, nil
}

// Keys returns the channel on which keypresses arrive.
func (t *Term) Keys() <-chan rune {
	return t.keys
}

// Restore the terminal to the mode it was in before NewTerm().
func (t *Term) Restore() {
	_ = termios.Tcsetattr(t.input.Fd(), termios.TCIFLUSH, &t.canAttr)
}

// Print an unstyled formatted string.
func (t *Term) Print(s string, a ...interface{}) {
	fmt.Fprintf(t.output, s, a...)
}

// Status prints a single styled status line.
func (t *Term) Status(s string, a ...interface{}) {
	fmt.Fprintln(t.output, t.styles.status.Render(fmt.Sprintf(s, a...)))
}

// About prints a styled multi-line block, such as the pipeline description.
func (t *Term) About(s string) {
	fmt.Fprintln(t.output, t.styles.about.Render(s))
}

// Help prints a dimmed line, used for key binding reminders.
func (t *Term) Help(s string) {
	fmt.Fprintln(t.output, t.styles.help.Render(s))
}

// Error prints a styled error line.
func (t *Term) Error(s string, a ...interface{}) {
	fmt.Fprintln(t.output, t.styles.err.Render(fmt.Sprintf(s, a...)))
}
