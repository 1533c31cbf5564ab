package catcode_test

import (
	"testing"

	"github.com/texfront/texfront/catcode"
)

func TestPlainTeXDefaults(t *testing.T) {
	tbl := catcode.NewPlainTeX()

	cases := []struct {
		r    rune
		want catcode.Catcode
	}{
		{'a', catcode.Letter},
		{'Z', catcode.Letter},
		{' ', catcode.Space},
		{'\\', catcode.Escape},
		{'{', catcode.Bgroup},
		{'}', catcode.Egroup},
		{'$', catcode.MathShift},
		{'&', catcode.AlignTab},
		{'^', catcode.Supscript},
		{'_', catcode.Subscript},
		{'%', catcode.Comment},
		{'#', catcode.ParamPrefix},
		{'~', catcode.Active},
		{'9', catcode.Other},
	}
	for _, c := range cases {
		if got := tbl.Of(c.r); got != c.want {
			t.Errorf("Of(%q) = %v, want %v", c.r, got, c.want)
		}
	}
}

func TestSetAndClone(t *testing.T) {
	tbl := catcode.NewPlainTeX()
	tbl.Set('~', catcode.Other)
	if got := tbl.Of('~'); got != catcode.Other {
		t.Fatalf("after Set, Of('~') = %v, want Other", got)
	}

	clone := tbl.Clone()
	clone.Set('~', catcode.Active)

	if got := tbl.Of('~'); got != catcode.Other {
		t.Errorf("mutating clone leaked into original: Of('~') = %v", got)
	}
	if got := clone.Of('~'); got != catcode.Active {
		t.Errorf("clone.Of('~') = %v, want Active", got)
	}
}

func TestValid(t *testing.T) {
	if !catcode.Valid(catcode.Letter) {
		t.Error("Letter should be valid")
	}
	if catcode.Valid(catcode.Catcode(99)) {
		t.Error("99 should not be a valid catcode")
	}
}
