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

// Package prefs facilitates the setting and saving of preference values.
// Preference values are concurrency safe and are suitable for passing
// between goroutines.
//
// The four basic preference types are Bool, String, Int and Float. Each
// can be set from any Go value with the Set() function; the value is
// converted to the native type where possible.
//
// Preference values that are to be saved to disk should be registered with
// a Disk instance. The Disk instance loads and saves all registered values
// en masse.
package prefs
