// Package config defines the launch configuration consumed by toolgen:
// the set of MCP tool servers that may be started, the mock-mode switch,
// and the settings of the generation backend, sandbox and peer manager.
//
// # File formats
//
// [Load] chooses a decoder from the file extension:
//
//   - .yaml, .yml: gopkg.in/yaml.v3
//   - .json: encoding/json
//   - .toml: github.com/BurntSushi/toml
//
// Durations are written as Go duration strings ("500ms", "30s") in every
// format; see [Duration].
//
// # Environment placeholders
//
// A server env value of the form ${NAME} is resolved against the host
// environment when the server is launched. Unset variables resolve to the
// empty string. Any other value is passed through literally.
//
// # Mock mode
//
// When MockMode is true no server process is ever started; protocol calls
// return a synthesized acknowledgment instead.
package config
