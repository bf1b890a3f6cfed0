// Package lookup resolves configured hostnames to IPv4 addresses at load
// time, and caches reverse lookups used only for display by the UI
// collaborator.
package lookup

import (
	"errors"
	"fmt"
	"net"
	"sync"
)

// NumericMode, when true, makes Addr skip reverse DNS and always return
// the numeric address string. It is a pure display concern, set by the CLI
// collaborator.
var NumericMode bool

var reverseCache sync.Map // net.IP.String() -> string

// Host resolves s to its first IPv4 address. Hostnames that only resolve
// to IPv6 are a load error, since the engine is IPv4-only.
func Host(s string) (net.IP, error) {
	addrs, err := net.LookupIP(s)
	if err != nil {
		return nil, fmt.Errorf("lookup error: %w", err)
	}
	for _, a := range addrs {
		if v4 := a.To4(); v4 != nil {
			return v4, nil
		}
	}
	return nil, errors.New("no IPv4 address found")
}

// Addr returns the display name for an address: the cached reverse-DNS
// name if one exists (and NumericMode is off), or the numeric address
// otherwise. Failures and empty results fall back to the numeric form and
// are cached too, so a single bad reverse lookup doesn't repeat every
// repaint.
func Addr(ip net.IP) string {
	numeric := ip.String()
	if NumericMode {
		return numeric
	}
	if v, ok := reverseCache.Load(numeric); ok {
		return v.(string)
	}
	name := numeric
	if names, err := net.LookupAddr(numeric); err == nil && len(names) > 0 {
		name = names[0]
	}
	reverseCache.Store(numeric, name)
	return name
}
