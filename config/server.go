package config

import (
	"regexp"
	"sort"
)

// placeholder matches a value that is exactly one ${NAME} reference.
var placeholder = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)\}$`)

// Server is the launch entry for one named tool server.
type Server struct {
	Name    string            `yaml:"name" json:"name" toml:"name"`
	Command string            `yaml:"command" json:"command" toml:"command"`
	Args    []string          `yaml:"args" json:"args,omitempty" toml:"args"`
	Env     map[string]string `yaml:"env" json:"env,omitempty" toml:"env"`

	// Dir is the working directory of the process. Empty inherits ours.
	Dir string `yaml:"dir" json:"dir,omitempty" toml:"dir"`
}

// ResolveEnv returns the server's environment with placeholders resolved,
// as KEY=VALUE pairs sorted by key. lookup is typically os.LookupEnv; a
// nil lookup resolves every placeholder to "".
func (s *Server) ResolveEnv(lookup func(string) (string, bool)) []string {
	keys := make([]string, 0, len(s.Env))
	for k := range s.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+ExpandValue(s.Env[k], lookup))
	}
	return out
}

// ExpandValue resolves v if it is a ${NAME} placeholder and returns it
// unchanged otherwise. Unset variables resolve to "".
func ExpandValue(v string, lookup func(string) (string, bool)) string {
	m := placeholder.FindStringSubmatch(v)
	if m == nil {
		return v
	}
	if lookup == nil {
		return ""
	}
	val, _ := lookup(m[1])
	return val
}

// MergeEnv overlays extra KEY=VALUE pairs on base. Later keys win and the
// order of first appearance is kept.
func MergeEnv(base, extra []string) []string {
	index := make(map[string]int, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, kv := range list {
			k := envKey(kv)
			if i, ok := index[k]; ok {
				out[i] = kv
				continue
			}
			index[k] = len(out)
			out = append(out, kv)
		}
	}
	return out
}

func envKey(kv string) string {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i]
		}
	}
	return kv
}
