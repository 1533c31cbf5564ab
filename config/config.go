// Package config holds the small set of external inputs the front end
// reads: the escape character, startup catcode overrides, the
// macro-recursion depth guard, and a fixed clock for the date primitives
// so conversions are reproducible in tests. A CLI driver is expected to
// load this from a YAML file and pass it to texfront.Convert.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v2"
)

// CatcodeOverride assigns a catcode to a single rune at startup, before any
// input is read. Represented as a slice (not a map) so it round-trips
// through YAML in a deterministic order.
type CatcodeOverride struct {
	Char    string `yaml:"char"`
	Catcode string `yaml:"catcode"`
}

// Options configures one Convert call.
type Options struct {
	// EscapeChar is the character that introduces control sequences.
	// Defaults to '\\'.
	EscapeChar rune `yaml:"-"`

	// CatcodeOverrides applied on top of catcode.NewPlainTeX() before
	// lexing begins.
	CatcodeOverrides []CatcodeOverride `yaml:"catcodes"`

	// MaxMacroDepth bounds recursive macro expansion; exceeding it is
	// a fatal error. Zero means "use the default".
	MaxMacroDepth int `yaml:"max_macro_depth"`

	// Clock is consulted by \year/\month/\day/\time. Nil means
	// "use time.Now".
	Clock func() time.Time `yaml:"-"`

	// Loader resolves \input/\include targets to file contents.
	// Nil makes LoadFile return a "no file loader configured" error, which
	// the lexer reports as a fatal "cannot open" error — the CLI driver
	// supplies a filesystem-backed implementation.
	Loader func(name string) (string, error) `yaml:"-"`

	// Verbose enables debug dumping of token/atom streams via kr/pretty.
	Verbose bool `yaml:"verbose"`
}

// LoadFile resolves name via the configured Loader, or reports it as
// unavailable when none was set.
func (o Options) LoadFile(name string) (string, error) {
	if o.Loader == nil {
		return "", fmt.Errorf("no file loader configured for %q", name)
	}
	return o.Loader(name)
}

// yamlShape mirrors Options for the fields yaml.v2 can marshal directly;
// EscapeChar is a rune (int32) but we want it spelled as a one-character
// string in the config file.
type yamlShape struct {
	EscapeChar       string            `yaml:"escape_char"`
	CatcodeOverrides []CatcodeOverride `yaml:"catcodes"`
	MaxMacroDepth    int               `yaml:"max_macro_depth"`
	Verbose          bool              `yaml:"verbose"`
}

const DefaultMaxMacroDepth = 1000

// Default returns the options a bare `texfront.Convert(name, src, config.Default(), nil)`
// call uses.
func Default() Options {
	return Options{
		EscapeChar:    '\\',
		MaxMacroDepth: DefaultMaxMacroDepth,
	}
}

// Load parses a YAML configuration document into Options, filling in
// defaults for anything left unset.
func Load(data []byte) (Options, error) {
	var y yamlShape
	if err := yaml.Unmarshal(data, &y); err != nil {
		return Options{}, err
	}

	opts := Default()
	if y.EscapeChar != "" {
		opts.EscapeChar = []rune(y.EscapeChar)[0]
	}
	if y.MaxMacroDepth > 0 {
		opts.MaxMacroDepth = y.MaxMacroDepth
	}
	opts.CatcodeOverrides = y.CatcodeOverrides
	opts.Verbose = y.Verbose
	return opts, nil
}

// Now returns the configured clock, or time.Now if unset.
func (o Options) Now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}
