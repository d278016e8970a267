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

package prefs

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// DefaultPrefsFile is the default filename of the main preferences file.
const DefaultPrefsFile = "magpie2600.prefs"

// the first line of a valid prefs file.
const magic = "*magpie2600*"

// the string that separates the key from the value on a prefs file line.
const keySep = " :: "

// NoPrefsFile is returned by Load() when the prefs file does not exist.
// Usually this is not an error worth reporting; the file will be created on
// the first Save().
var NoPrefsFile = errors.New("prefs: no prefs file")

// Disk represents preference values as stored on disk. Individual
// preference values are registered with Add() and are written/read en masse
// with Save() and Load().
type Disk struct {
	path    string
	entries map[string]pref
}

// NewDisk is the preferred method of initialisation for the Disk type.
func NewDisk(path string) (*Disk, error) {
	return &Disk{
		path:    path,
		entries: make(map[string]pref),
	}, nil
}

// Add a preference value to the list of values to be saved/loaded under the
// given key. Keys must be unique.
func (dsk *Disk) Add(key string, p pref) error {
	if strings.Contains(key, keySep) {
		return fmt.Errorf("prefs: invalid key (%s)", key)
	}
	if _, ok := dsk.entries[key]; ok {
		return fmt.Errorf("prefs: duplicate key (%s)", key)
	}
	dsk.entries[key] = p
	return nil
}

func (dsk *Disk) String() string {
	keys := make([]string, 0, len(dsk.entries))
	for key := range dsk.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	s := strings.Builder{}
	for _, key := range keys {
		s.WriteString(fmt.Sprintf("%s%s%s\n", key, keySep, dsk.entries[key].String()))
	}
	return s.String()
}

// Save current preference values to disk. Preference values on disk that
// have not been registered with Add() are preserved.
func (dsk *Disk) Save() (rerr error) {
	// load any unregistered entries so they survive the rewrite
	other, err := dsk.loadOther()
	if err != nil && !errors.Is(err, NoPrefsFile) {
		return err
	}

	f, err := os.Create(dsk.path)
	if err != nil {
		return fmt.Errorf("prefs: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil && rerr == nil {
			rerr = fmt.Errorf("prefs: %w", err)
		}
	}()

	if _, err := fmt.Fprintln(f, magic); err != nil {
		return fmt.Errorf("prefs: %w", err)
	}

	keys := make([]string, 0, len(dsk.entries)+len(other))
	lines := make(map[string]string)
	for key, p := range dsk.entries {
		keys = append(keys, key)
		lines[key] = p.String()
	}
	for key, value := range other {
		keys = append(keys, key)
		lines[key] = value
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, err := fmt.Fprintf(f, "%s%s%s\n", key, keySep, lines[key]); err != nil {
			return fmt.Errorf("prefs: %w", err)
		}
	}

	return nil
}

// Load preference values from disk. If saveOnError is true then a Save()
// is attempted when a value cannot be set, restoring the file to a
// consistent state.
//
// Returns NoPrefsFile (wrapped) if the prefs file does not exist.
func (dsk *Disk) Load(saveOnError bool) error {
	err := dsk.load(func(key string, value string) error {
		if p, ok := dsk.entries[key]; ok {
			return p.Set(value)
		}
		return nil
	})

	if err != nil && saveOnError && !errors.Is(err, NoPrefsFile) {
		return dsk.Save()
	}

	return err
}

// HasEntry returns true if the disk file has an entry for the key, even if
// the entry has not been registered with Add().
func (dsk *Disk) HasEntry(key string) (bool, error) {
	found := false
	err := dsk.load(func(k string, _ string) error {
		if k == key {
			found = true
		}
		return nil
	})
	if err != nil && !errors.Is(err, NoPrefsFile) {
		return false, err
	}
	return found, nil
}

// loadOther returns entries in the prefs file that have not been registered
// with Add().
func (dsk *Disk) loadOther() (map[string]string, error) {
	other := make(map[string]string)
	err := dsk.load(func(key string, value string) error {
		if _, ok := dsk.entries[key]; !ok {
			other[key] = value
		}
		return nil
	})
	return other, err
}

func (dsk *Disk) load(with func(key string, value string) error) error {
	f, err := os.Open(dsk.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w (%s)", NoPrefsFile, dsk.path)
		}
		return fmt.Errorf("prefs: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil && err != io.EOF {
			return fmt.Errorf("prefs: %w", err)
		}
		return fmt.Errorf("prefs: empty prefs file (%s)", dsk.path)
	}
	if scanner.Text() != magic {
		return fmt.Errorf("prefs: not a valid prefs file (%s)", dsk.path)
	}

	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), keySep)
		if !ok {
			continue
		}
		if err := with(key, value); err != nil {
			return fmt.Errorf("prefs: %w", err)
		}
	}

	return scanner.Err()
}
