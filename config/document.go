// Package config loads the JSON configuration document (input channel,
// output channel map, per-pattern step/velocity/gate arrays) into the
// pattern package's Config values, applying the documented defaults and
// right-pad/truncate rules.
package config

import "github.com/iltempo/trrouter/pattern"

// Document is one successfully-loaded configuration: the input channel
// filter and a named set of pattern configs in stable iteration order.
type Document struct {
	InputChannel uint8
	PatternOrder []string
	Patterns     map[string]*pattern.Config
}
