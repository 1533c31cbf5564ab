package texerr_test

import (
	"strings"
	"testing"

	"github.com/texfront/texfront/texerr"
)

func TestFatalErrorWrap(t *testing.T) {
	base := texerr.NewFatal(texerr.Pos{File: "a.tex", Line: 3, Col: 1}, "lexer", "unterminated group")
	wrapped := texerr.Wrap(texerr.Pos{File: "a.tex", Line: 3, Col: 1}, "parser", base)

	if !strings.Contains(wrapped.Error(), "unterminated group") {
		t.Fatalf("wrapped error lost cause message: %s", wrapped.Error())
	}
	if wrapped.Cause().Error() == "" {
		t.Fatal("Cause() should return the deepest error")
	}
}

func TestCollectorRecordsAndLogs(t *testing.T) {
	log := texerr.GetLogger("test")
	c := texerr.NewCollector(log)
	c.Warnf(texerr.Pos{File: "a.tex", Line: 1, Col: 1}, "reader", "undefined citation key %q", "smith20")

	ws := c.Warnings()
	if len(ws) != 1 {
		t.Fatalf("len(Warnings()) = %d, want 1", len(ws))
	}
	if !strings.Contains(ws[0].String(), "smith20") {
		t.Fatalf("warning missing key: %s", ws[0].String())
	}
}

func TestSoftErrorKindString(t *testing.T) {
	e := texerr.NewSoft(texerr.EndOfGroup, texerr.Pos{}, "")
	if e.Error() != "EndOfGroup" {
		t.Fatalf("Error() = %q, want EndOfGroup", e.Error())
	}
}
