package sandbox

import (
	"fmt"
	"path"
	"reflect"
	"sort"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/jonwraymond/toolgen/config"
)

// forbidden lists packages that no allow list may contain. An entry also
// covers every package below it.
var forbidden = []string{
	"os",
	"net",
	"io/ioutil",
	"syscall",
	"unsafe",
	"reflect",
	"plugin",
	"runtime",
}

// Forbidden reports whether pkg can never be allow-listed.
func Forbidden(pkg string) bool {
	for _, f := range forbidden {
		if pkg == f || strings.HasPrefix(pkg, f+"/") {
			return true
		}
	}
	return false
}

// AllowList maps an import path to the exported symbols code may use from
// it. An empty symbol list allows the whole package.
type AllowList map[string][]string

// DefaultAllowList returns the allow list used by the restricted tier when
// none is configured: formatted output, string and number handling, sorting,
// errors, JSON encoding, and time arithmetic.
func DefaultAllowList() AllowList {
	return AllowList{
		"fmt":           {"Print", "Printf", "Println", "Sprint", "Sprintf", "Sprintln", "Errorf"},
		"strings":       nil,
		"strconv":       nil,
		"math":          nil,
		"sort":          nil,
		"errors":        nil,
		"unicode":       nil,
		"unicode/utf8":  nil,
		"encoding/json": {"Marshal", "MarshalIndent", "Unmarshal", "Valid"},
		"time":          {"Now", "Since", "Duration", "Time", "Millisecond", "Second", "Minute", "Hour", "RFC3339", "Parse", "ParseDuration", "Unix"},
	}
}

// Validate rejects forbidden packages and packages the interpreter does not
// provide.
func (a AllowList) Validate() error {
	var problems []string
	for _, pkg := range a.Packages() {
		if Forbidden(pkg) {
			problems = append(problems, fmt.Sprintf("%q is never allowed", pkg))
			continue
		}
		syms, ok := stdlib.Symbols[symbolKey(pkg)]
		if !ok {
			problems = append(problems, fmt.Sprintf("%q is not a standard library package", pkg))
			continue
		}
		for _, s := range a[pkg] {
			if _, ok := syms[s]; !ok {
				problems = append(problems, fmt.Sprintf("%s.%s does not exist", pkg, s))
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: allow list: %s", config.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// Allows reports whether pkg may be imported.
func (a AllowList) Allows(pkg string) bool {
	if Forbidden(pkg) {
		return false
	}
	_, ok := a[pkg]
	return ok
}

// AllowsSymbol reports whether pkg.symbol may be used.
func (a AllowList) AllowsSymbol(pkg, symbol string) bool {
	if !a.Allows(pkg) {
		return false
	}
	syms := a[pkg]
	if len(syms) == 0 {
		return true
	}
	for _, s := range syms {
		if s == symbol {
			return true
		}
	}
	return false
}

// Packages returns the allowed import paths, sorted.
func (a AllowList) Packages() []string {
	out := make([]string, 0, len(a))
	for pkg := range a {
		out = append(out, pkg)
	}
	sort.Strings(out)
	return out
}

// Exports returns the interpreter symbol table for the allow list.
// Forbidden and unknown packages are left out.
func (a AllowList) Exports() interp.Exports {
	out := make(interp.Exports, len(a))
	for pkg := range a {
		if Forbidden(pkg) {
			continue
		}
		key := symbolKey(pkg)
		syms, ok := stdlib.Symbols[key]
		if !ok {
			continue
		}
		allowed := make(map[string]reflect.Value, len(syms))
		for name, v := range syms {
			if a.AllowsSymbol(pkg, name) {
				allowed[name] = v
			}
		}
		out[key] = allowed
	}
	return out
}

// symbolKey returns the interpreter's key for an import path.
func symbolKey(pkg string) string {
	return pkg + "/" + path.Base(pkg)
}
