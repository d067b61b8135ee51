package system

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/shlex"
)

// Capability names an external command-line tool invoked through a fixed
// argument template.
type Capability string

const (
	CapabilityMount          Capability = "mount"
	CapabilityUnmount        Capability = "unmount"
	CapabilityInspectArchive Capability = "inspect-archive"
	CapabilityCopyArchive    Capability = "copy-archive"
)

// Vars holds the caller-supplied values substituted into a template.
type Vars map[string]string

// Template is a parsed command line whose arguments may reference ${name}
// placeholders. "$$" yields a literal dollar sign.
type Template struct {
	Command string
	Args    []string
	raw     string
}

// ParseTemplate splits a template with shell quoting rules
func ParseTemplate(s string) (Template, error) {
	fields, err := shlex.Split(s)
	if err != nil {
		return Template{}, fmt.Errorf("invalid capability template %q: %w", s, err)
	}
	if len(fields) == 0 {
		return Template{}, fmt.Errorf("empty capability template")
	}
	return Template{Command: fields[0], Args: fields[1:], raw: s}, nil
}

// Expand substitutes vars into each argument. Substitution happens after
// splitting, so a value containing spaces stays a single argument.
func (t Template) Expand(vars Vars) (string, []string, error) {
	missing := map[string]struct{}{}
	mapping := func(key string) string {
		if key == "$" {
			return "$"
		}
		v, ok := vars[key]
		if !ok {
			missing[key] = struct{}{}
		}
		return v
	}

	command := os.Expand(t.Command, mapping)
	args := make([]string, len(t.Args))
	for i, arg := range t.Args {
		args[i] = os.Expand(arg, mapping)
	}

	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for name := range missing {
			names = append(names, name)
		}
		sort.Strings(names)
		return "", nil, MalformedInput("expand template",
			"%q references unset variables: %s", t.raw, strings.Join(names, ", "))
	}
	return command, args, nil
}

func (t Template) String() string {
	return t.raw
}

// Capabilities maps each capability to its template
type Capabilities map[Capability]Template

// ParseCapabilities parses every template, failing on the first bad one
func ParseCapabilities(templates map[Capability]string) (Capabilities, error) {
	caps := make(Capabilities, len(templates))
	for name, raw := range templates {
		tmpl, err := ParseTemplate(raw)
		if err != nil {
			return nil, fmt.Errorf("capability %s: %w", name, err)
		}
		caps[name] = tmpl
	}
	return caps, nil
}

// Commands returns the distinct executables referenced by the templates
func (c Capabilities) Commands() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, tmpl := range c {
		if _, ok := seen[tmpl.Command]; ok {
			continue
		}
		seen[tmpl.Command] = struct{}{}
		out = append(out, tmpl.Command)
	}
	sort.Strings(out)
	return out
}
