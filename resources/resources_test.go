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

package resources_test

import (
	"strings"
	"testing"

	"github.com/sennett/magpie2600/resources"
	"github.com/sennett/magpie2600/test"
)

func TestUniqueFilename(t *testing.T) {
	fn := resources.UniqueFilename("audio", "tune")
	if !strings.HasPrefix(fn, "audio_tune_") {
		t.Errorf("unexpected filename: %s", fn)
	}

	// timestamp is YYYYMMDD_HHMMSS
	test.Equate(t, len(fn), len("audio_tune_")+15)

	// the name part is optional
	fn = resources.UniqueFilename("audio", "")
	if !strings.HasPrefix(fn, "audio_") {
		t.Errorf("unexpected filename: %s", fn)
	}
	test.Equate(t, len(fn), len("audio_")+15)

	// surrounding whitespace in the name is trimmed
	fn = resources.UniqueFilename("audio", "  ")
	test.Equate(t, len(fn), len("audio_")+15)
}
