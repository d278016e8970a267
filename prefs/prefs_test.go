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

package prefs_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/sennett/magpie2600/prefs"
	"github.com/sennett/magpie2600/test"
)

func TestBool(t *testing.T) {
	var b prefs.Bool

	test.Equate(t, b.Get().(bool), false)

	err := b.Set(true)
	test.ExpectedSuccess(t, err)
	test.Equate(t, b.Get().(bool), true)

	// string conversion
	err = b.Set("false")
	test.ExpectedSuccess(t, err)
	test.Equate(t, b.Get().(bool), false)

	err = b.Set("not a bool")
	test.ExpectedFailure(t, err)
}

func TestInt(t *testing.T) {
	var i prefs.Int

	err := i.Set(100)
	test.ExpectedSuccess(t, err)
	test.Equate(t, i.Get().(int), 100)

	err = i.Set("-3")
	test.ExpectedSuccess(t, err)
	test.Equate(t, i.Get().(int), -3)

	test.Equate(t, i.String(), "-3")
}

func TestFloat(t *testing.T) {
	var f prefs.Float

	err := f.Set(1.5)
	test.ExpectedSuccess(t, err)
	test.ApproxEquate(t, f.Get().(float64), 1.5, 0.0001)

	err = f.Set("2.25")
	test.ExpectedSuccess(t, err)
	test.ApproxEquate(t, f.Get().(float64), 2.25, 0.0001)
}

func TestHooks(t *testing.T) {
	var i prefs.Int

	post := 0
	i.SetHookPost(func(v prefs.Value) error {
		post = v.(int)
		return nil
	})

	err := i.Set(42)
	test.ExpectedSuccess(t, err)
	test.Equate(t, post, 42)

	// a pre hook that returns an error prevents the set
	i.SetHookPre(func(v prefs.Value) error {
		return errors.New("no")
	})
	err = i.Set(43)
	test.ExpectedFailure(t, err)
	test.Equate(t, i.Get().(int), 42)
}

func TestDiskSaveLoad(t *testing.T) {
	pth := filepath.Join(t.TempDir(), "test.prefs")

	var b prefs.Bool
	var s prefs.String
	var i prefs.Int

	dsk, err := prefs.NewDisk(pth)
	test.ExpectedSuccess(t, err)
	test.ExpectedSuccess(t, dsk.Add("test.bool", &b))
	test.ExpectedSuccess(t, dsk.Add("test.string", &s))
	test.ExpectedSuccess(t, dsk.Add("test.int", &i))

	// duplicate keys are not allowed
	test.ExpectedFailure(t, dsk.Add("test.bool", &b))

	// no file on disk yet
	err = dsk.Load(false)
	test.ExpectedFailure(t, err)
	test.Equate(t, errors.Is(err, prefs.NoPrefsFile), true)

	test.ExpectedSuccess(t, b.Set(true))
	test.ExpectedSuccess(t, s.Set("hello"))
	test.ExpectedSuccess(t, i.Set(99))
	test.ExpectedSuccess(t, dsk.Save())

	// load into a fresh set of values
	var b2 prefs.Bool
	var s2 prefs.String
	var i2 prefs.Int

	dsk2, err := prefs.NewDisk(pth)
	test.ExpectedSuccess(t, err)
	test.ExpectedSuccess(t, dsk2.Add("test.bool", &b2))
	test.ExpectedSuccess(t, dsk2.Add("test.string", &s2))
	test.ExpectedSuccess(t, dsk2.Add("test.int", &i2))
	test.ExpectedSuccess(t, dsk2.Load(false))

	test.Equate(t, b2.Get().(bool), true)
	test.Equate(t, s2.Get().(string), "hello")
	test.Equate(t, i2.Get().(int), 99)
}

func TestDiskPreservesOtherEntries(t *testing.T) {
	pth := filepath.Join(t.TempDir(), "test.prefs")

	// save a value under one key
	var s prefs.String
	test.ExpectedSuccess(t, s.Set("preserved"))

	dsk, err := prefs.NewDisk(pth)
	test.ExpectedSuccess(t, err)
	test.ExpectedSuccess(t, dsk.Add("other.key", &s))
	test.ExpectedSuccess(t, dsk.Save())

	// a second Disk instance that knows nothing about other.key must not
	// destroy it on Save()
	var i prefs.Int
	test.ExpectedSuccess(t, i.Set(1))

	dsk2, err := prefs.NewDisk(pth)
	test.ExpectedSuccess(t, err)
	test.ExpectedSuccess(t, dsk2.Add("test.int", &i))
	test.ExpectedSuccess(t, dsk2.Save())

	ok, err := dsk2.HasEntry("other.key")
	test.ExpectedSuccess(t, err)
	test.Equate(t, ok, true)
}
