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

// Package modalflag layers sub-modes on top of the standard flag package.
// A command line is parsed in stages: each stage consumes the flags defined
// so far and may then select a sub-mode, after which a new set of flags can
// be defined and Parse() called again. The pattern:
//
//	md := modalflag.Modes{Output: os.Stdout}
//	md.NewArgs(os.Args[1:])
//	md.AddSubModes("play", "clip", "version")
//
//	p, err := md.Parse()
//	...
//
//	switch md.Mode() {
//	case "PLAY":
//		md.NewMode()
//		// define PLAY flags, call md.Parse() again
//	...
//	}
//
// Sub-mode matching is case insensitive; the first sub-mode in the list is
// the default when no sub-mode appears on the command line.
package modalflag

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

const modeSeparator = "/"

// Modes parses a command line in stages. The Output field should be set
// before the first call to Parse() or help messages will be lost.
type Modes struct {
	// where help messages are printed
	Output io.Writer

	// the flagset for the current stage. recreated by NewMode()
	flags *flag.FlagSet

	// the full argument list and the index of the first argument not yet
	// consumed by a previous stage
	args    []string
	argsIdx int

	// sub-modes valid in the current stage. index zero is the default
	subModes []string

	// sub-modes selected by successive calls to Parse(). never reset
	path []string

	// free-form text appended to the help message for the current stage
	additionalHelp string
}

func (md *Modes) String() string {
	return md.Path()
}

// Mode returns the most recently selected sub-mode, in upper case. The
// empty string means no sub-mode has been selected yet.
func (md *Modes) Mode() string {
	if len(md.path) == 0 {
		return ""
	}
	return md.path[len(md.path)-1]
}

// Path returns every sub-mode selected so far, separated by slashes.
func (md *Modes) Path() string {
	return strings.Join(md.path, modeSeparator)
}

// NewArgs begins parsing of a fresh argument list, implicitly starting the
// first stage.
func (md *Modes) NewArgs(args []string) {
	md.args = args
	md.argsIdx = 0
	md.NewMode()
}

// NewMode starts the next stage of parsing. Flags defined and sub-modes
// added after this call apply to the next call to Parse().
func (md *Modes) NewMode() {
	md.subModes = []string{}
	md.flags = flag.NewFlagSet("", flag.ContinueOnError)
	md.additionalHelp = ""
}

// AdditionalHelp text is printed after the flag summary for the current
// stage.
func (md *Modes) AdditionalHelp(help string) {
	md.additionalHelp = help
}

// AddSubModes valid for the next call to Parse(). The first sub-mode added
// is the default. Matching is case insensitive.
func (md *Modes) AddSubModes(submodes ...string) {
	md.subModes = append(md.subModes, submodes...)
	for i := range md.subModes {
		md.subModes[i] = strings.ToUpper(md.subModes[i])
	}
}

// AddDefaultSubMode prepends a sub-mode, making it the new default.
func (md *Modes) AddDefaultSubMode(submode string) {
	md.subModes = append([]string{strings.ToUpper(submode)}, md.subModes...)
}

// ParseResult is returned by Parse().
type ParseResult int

// List of valid ParseResult values.
const (
	// parsing succeeded. if sub-modes were added for this stage, Mode()
	// says which one was selected
	ParseContinue ParseResult = iota

	// help was requested and has been printed to Output. treat like an
	// error but with nothing more to say to the user
	ParseHelp

	// the error is returned alongside
	ParseError
)

// Parse the arguments remaining from the previous stage. Flag handling,
// including -help, is delegated to the flag package; anything after the
// flags is checked against the stage's sub-modes.
func (md *Modes) Parse() (ParseResult, error) {
	// capture the flag package's help output rather than letting it go
	// directly to stderr
	capture := &strings.Builder{}
	md.flags.SetOutput(capture)

	err := md.flags.Parse(md.args[md.argsIdx:])
	if err != nil {
		if err == flag.ErrHelp {
			md.help(capture.String())
			return ParseHelp, nil
		}
		return ParseError, err
	}

	if len(md.subModes) > 0 {
		// assume the default sub-mode until the first argument says
		// otherwise
		mode := md.subModes[0]

		arg := strings.ToUpper(md.flags.Arg(0))
		for _, sub := range md.subModes {
			if sub == arg {
				mode = arg
				md.argsIdx++
				break // for loop
			}
		}

		md.path = append(md.path, mode)
	}

	return ParseContinue, nil
}

// RemainingArgs returns the arguments left over after Parse(): those that
// are neither flags nor a listed sub-mode.
func (md *Modes) RemainingArgs() []string {
	return md.flags.Args()
}

// GetArg returns the indexed leftover argument.
func (md *Modes) GetArg(i int) string {
	return md.flags.Arg(i)
}

// help formats the flag package's captured usage output, adding the mode
// path, the sub-mode list and any additional help text.
func (md *Modes) help(captured string) {
	if md.Output == nil {
		return
	}

	lines := strings.Split(captured, "\n")

	// the flag package emits a bare "Usage:" line when there are no flags
	// defined. without sub-modes either, there is nothing to say
	if captured == "Usage:\n" && len(md.subModes) == 0 {
		if p := md.Path(); p != "" {
			fmt.Fprintf(md.Output, "No help available for %s\n", p)
		} else {
			fmt.Fprintln(md.Output, "No help available")
		}
		return
	}

	if p := md.Path(); p != "" {
		fmt.Fprintf(md.Output, "%s for %s mode\n", lines[0], p)
	} else {
		fmt.Fprintln(md.Output, lines[0])
	}

	if len(lines) > 1 {
		io.WriteString(md.Output, strings.Join(lines[1:], "\n"))
	}

	if len(md.subModes) > 0 {
		if len(lines) > 2 {
			fmt.Fprintln(md.Output)
		}
		fmt.Fprintf(md.Output, "  available sub-modes: %s\n", strings.Join(md.subModes, ", "))
		fmt.Fprintf(md.Output, "    default: %s\n", md.subModes[0])
	}

	if md.additionalHelp != "" {
		fmt.Fprintf(md.Output, "\n%s\n", md.additionalHelp)
	}
}

// AddBool flag for the next call to Parse().
func (md *Modes) AddBool(name string, value bool, usage string) *bool {
	return md.flags.Bool(name, value, usage)
}

// AddInt flag for the next call to Parse().
func (md *Modes) AddInt(name string, value int, usage string) *int {
	return md.flags.Int(name, value, usage)
}

// AddFloat64 flag for the next call to Parse().
func (md *Modes) AddFloat64(name string, value float64, usage string) *float64 {
	return md.flags.Float64(name, value, usage)
}

// AddString flag for the next call to Parse().
func (md *Modes) AddString(name string, value string, usage string) *string {
	return md.flags.String(name, value, usage)
}
