package config

import "errors"

// ErrConfiguration indicates a missing or invalid server, catalog, or
// component configuration.
var ErrConfiguration = errors.New("configuration error")
