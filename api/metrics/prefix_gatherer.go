// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"errors"
	"fmt"

	"github.com/luxfi/metric"
	"google.golang.org/protobuf/proto"
)

var (
	_ MultiGatherer = (*prefixGatherer)(nil)

	errOverlappingNamespaces = errors.New("prefix could create overlapping namespaces")
	errInvalidPrefix         = errors.New("prefix is not a valid metric name")
)

// NewPrefixGatherer returns a MultiGatherer that namespaces each registered
// gatherer's families by its prefix, typically a chain alias.
func NewPrefixGatherer() MultiGatherer {
	return &prefixGatherer{}
}

type prefixGatherer struct {
	multiGatherer
}

// Register rejects prefixes that would emit an unparsable exposition or
// whose namespace overlaps a registered one.
func (g *prefixGatherer) Register(prefix string, gatherer metric.Gatherer) error {
	if !validPrefix(prefix) {
		return fmt.Errorf("%w: %q", errInvalidPrefix, prefix)
	}

	g.lock.Lock()
	defer g.lock.Unlock()

	for _, existing := range g.names {
		if eitherIsPrefix(prefix, existing) {
			return fmt.Errorf("%w: %q conflicts with %q",
				errOverlappingNamespaces,
				prefix,
				existing,
			)
		}
	}

	g.register(prefix, &prefixedGatherer{
		prefix:   prefix,
		gatherer: gatherer,
	})
	return nil
}

type prefixedGatherer struct {
	prefix   string
	gatherer metric.Gatherer
}

// Gather still returns the families produced before an error.
func (g *prefixedGatherer) Gather() ([]*metric.MetricFamily, error) {
	families, err := g.gatherer.Gather()
	for _, family := range families {
		name := family.GetName()
		if name == "" {
			family.Name = proto.String(g.prefix)
			continue
		}
		family.Name = proto.String(metric.AppendNamespace(g.prefix, name))
	}
	return families, err
}

// validPrefix reports whether prefix can lead a metric name. The empty prefix
// leaves names untouched.
func validPrefix(prefix string) bool {
	for i, r := range prefix {
		switch {
		case r == '_', r == ':', 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z':
		case '0' <= r && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// eitherIsPrefix returns true if either [a] is a prefix of [b] or [b] is a
// prefix of [a].
//
// "hello" is not considered a prefix of "helloworld", but it is a prefix of
// "hello_world".
func eitherIsPrefix(a, b string) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	return a == b[:len(a)] &&
		(len(a) == 0 ||
			len(a) == len(b) ||
			b[len(a)] == '_')
}
