// Package registry maps annotation format tags to converters.
package registry

import (
	"fmt"
	"sort"

	"github.com/forPelevin/annoset/internal/domain/schema"
	"github.com/forPelevin/annoset/internal/ports"
	"github.com/forPelevin/annoset/internal/ports/adapters/eaf"
	"github.com/forPelevin/annoset/internal/ports/adapters/its"
	"github.com/forPelevin/annoset/internal/ports/adapters/rttm"
	"github.com/forPelevin/annoset/internal/ports/adapters/whisperjson"
)

type Registry struct {
	converters map[string]ports.Converter
}

func New() *Registry {
	return &Registry{converters: map[string]ports.Converter{}}
}

// Builtin returns a registry with every converter shipped with annoset.
// TextGrid, alice and cha are valid index formats without a converter; their
// rows fail at import time.
func Builtin() *Registry {
	r := New()
	r.Register(string(schema.FormatEAF), eaf.New())
	r.Register(string(schema.FormatITS), its.New())
	r.Register(string(schema.FormatVTCRTTM), rttm.New(rttm.VTC))
	r.Register(string(schema.FormatVCMRTTM), rttm.New(rttm.VCM))
	r.Register(string(schema.FormatWhisperJSON), whisperjson.New())
	return r
}

// Register binds tag to c, replacing any previous binding.
func (r *Registry) Register(tag string, c ports.Converter) {
	r.converters[tag] = c
}

func (r *Registry) Lookup(tag string) (ports.Converter, error) {
	c, ok := r.converters[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ports.ErrUnknownFormat, tag)
	}
	return c, nil
}

// Formats returns the registered tags in sorted order.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.converters))
	for tag := range r.converters {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
