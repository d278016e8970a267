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

package logger_test

import (
	"strings"
	"testing"

	"github.com/sennett/magpie2600/logger"
	"github.com/sennett/magpie2600/test"
)

func TestCentral(t *testing.T) {
	logger.Clear()

	logger.Log("test", "first entry")
	logger.Logf("test", "formatted %d", 2)

	b := &strings.Builder{}
	logger.Write(b)
	test.Equate(t, b.String(), "test: first entry\ntest: formatted 2\n")

	b.Reset()
	logger.Tail(b, 1)
	test.Equate(t, b.String(), "test: formatted 2\n")

	logger.Clear()
	b.Reset()
	logger.Write(b)
	test.Equate(t, b.String(), "")
}

func TestRepeatFolding(t *testing.T) {
	logger.Clear()

	for i := 0; i < 3; i++ {
		logger.Log("test", "same entry")
	}

	b := &strings.Builder{}
	logger.Write(b)
	test.Equate(t, b.String(), "test: same entry (repeat x3)\n")
}
