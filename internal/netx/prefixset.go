// Package netx parses trusted-proxy address lists.
package netx

import (
	"fmt"
	"net/netip"
	"strings"
)

// PrefixSet is an immutable list of network prefixes. A nil set contains nothing.
type PrefixSet struct {
	prefixes []netip.Prefix
}

// ParsePrefixSet accepts CIDRs and bare addresses; blanks are skipped.
func ParsePrefixSet(items []string) (*PrefixSet, error) {
	set := &PrefixSet{}
	for _, raw := range items {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		if !strings.Contains(s, "/") {
			a, err := netip.ParseAddr(s)
			if err != nil {
				return nil, fmt.Errorf("invalid ip %q: %w", s, err)
			}
			set.prefixes = append(set.prefixes, netip.PrefixFrom(a.Unmap(), a.Unmap().BitLen()))
			continue
		}
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return nil, fmt.Errorf("invalid cidr %q: %w", s, err)
		}
		set.prefixes = append(set.prefixes, p.Masked())
	}
	return set, nil
}

func (s *PrefixSet) Contains(a netip.Addr) bool {
	if s == nil || !a.IsValid() {
		return false
	}
	a = a.Unmap()
	for _, p := range s.prefixes {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

func (s *PrefixSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.prefixes)
}
