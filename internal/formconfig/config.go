package formconfig

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
)

// Mode is the visibility of a field on the application form.
type Mode string

const (
	ModeRequired Mode = "required"
	ModeShown    Mode = "shown"
	ModeHidden   Mode = "hidden"
)

// Unset fields are interpreted differently depending on who is reading the
// config. The intake gate denies by default; the admin editor shows by
// default.
const (
	ResolutionDefaultMode = ModeHidden
	AuthoringDefaultMode  = ModeShown
)

// ParseMode converts a raw string into a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	switch m {
	case ModeRequired, ModeShown, ModeHidden:
		return m, nil
	}
	return "", fmt.Errorf("unknown field mode %q", s)
}

// FieldConfig maps a field to its mode. It is stored as a JSON object and is
// always replaced wholesale on update.
type FieldConfig map[FieldKey]Mode

// ModeFor returns the mode of key, falling back to def when the key is unset.
func (c FieldConfig) ModeFor(key FieldKey, def Mode) Mode {
	if m, ok := c[key]; ok {
		return m
	}
	return def
}

// IsEmpty reports whether the config has no entries.
func (c FieldConfig) IsEmpty() bool { return len(c) == 0 }

// Clone returns a copy that can be modified without touching c.
func (c FieldConfig) Clone() FieldConfig {
	if c == nil {
		return nil
	}
	out := make(FieldConfig, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Equal reports whether both configs hold exactly the same entries.
func (c FieldConfig) Equal(other FieldConfig) bool {
	if len(c) != len(other) {
		return false
	}
	for k, v := range c {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Validate checks that every key is a known field and every mode is one of
// the three supported values. The returned map is keyed by field.
func (c FieldConfig) Validate() map[string]string {
	problems := make(map[string]string)
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	for _, k := range keys {
		key := FieldKey(k)
		if !IsKnownField(key) {
			problems[k] = "unknown field"
			continue
		}
		if _, err := ParseMode(string(c[key])); err != nil {
			problems[k] = err.Error()
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}

// Authoring expands c into a mode for every known field, using
// AuthoringDefaultMode for unset keys. This is the view the admin editor
// starts from.
func (c FieldConfig) Authoring() FieldConfig {
	out := make(FieldConfig, len(Fields))
	for _, f := range Fields {
		out[f.Key] = c.ModeFor(f.Key, AuthoringDefaultMode)
	}
	return out
}

var builtinDefault = FieldConfig{
	FieldFullName:          ModeRequired,
	FieldEmail:             ModeRequired,
	FieldPhone:             ModeRequired,
	FieldResumeURL:         ModeRequired,
	FieldCurrentLocation:   ModeShown,
	FieldLinkedinProfile:   ModeShown,
	FieldYearsOfExperience: ModeShown,
	FieldExpectedSalary:    ModeShown,
	FieldCoverLetter:       ModeShown,
	FieldSkills:            ModeShown,
}

// DefaultFieldConfig returns a copy of the built-in fallback config used when
// a job has neither an inline config nor a resolvable template.
func DefaultFieldConfig() FieldConfig { return builtinDefault.Clone() }

type defaultsFile struct {
	Fields map[string]string `toml:"fields"`
}

// ReadDefaults decodes a fallback config from TOML:
//
//	[fields]
//	fullName = "required"
//	email = "required"
func ReadDefaults(r io.Reader) (FieldConfig, error) {
	var f defaultsFile
	if _, err := toml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode form defaults: %w", err)
	}
	cfg := make(FieldConfig, len(f.Fields))
	for k, v := range f.Fields {
		cfg[FieldKey(k)] = Mode(v)
	}
	if problems := cfg.Validate(); problems != nil {
		return nil, fmt.Errorf("invalid form defaults: %v", problems)
	}
	if cfg.IsEmpty() {
		return nil, fmt.Errorf("form defaults file declares no fields")
	}
	return cfg, nil
}

// LoadDefaults returns the fallback config. An empty path yields the built-in
// default.
func LoadDefaults(path string) (FieldConfig, error) {
	if path == "" {
		return DefaultFieldConfig(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open form defaults: %w", err)
	}
	defer f.Close()
	cfg, err := ReadDefaults(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return cfg, nil
}
