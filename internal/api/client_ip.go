package api

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIPResolver finds the address rate limits are keyed on. Forwarding
// headers count only when the direct peer is a trusted proxy.
type ClientIPResolver struct {
	trusted []netip.Prefix
}

// NewClientIPResolver accepts CIDRs and bare addresses.
func NewClientIPResolver(trustedProxies []string) (*ClientIPResolver, error) {
	resolver := &ClientIPResolver{}
	for _, raw := range trustedProxies {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}

		if addr, err := netip.ParseAddr(value); err == nil {
			addr = addr.Unmap()
			resolver.trusted = append(resolver.trusted, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}

		prefix, err := netip.ParsePrefix(value)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", value, err)
		}
		resolver.trusted = append(resolver.trusted, prefix.Masked())
	}
	return resolver, nil
}

// Resolve returns the client address, or "unknown" when the peer address
// cannot be parsed.
func (r *ClientIPResolver) Resolve(req *http.Request) string {
	peer, ok := parseAddr(req.RemoteAddr)
	if !ok {
		return "unknown"
	}
	if !r.isTrusted(peer) {
		return peer.String()
	}

	// The right-most hop not added by one of our proxies is the client.
	hops := strings.Split(req.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop, ok := parseAddr(hops[i])
		if !ok {
			continue
		}
		if !r.isTrusted(hop) {
			return hop.String()
		}
	}

	if realIP, ok := parseAddr(req.Header.Get("X-Real-IP")); ok {
		return realIP.String()
	}
	return peer.String()
}

// LimitKey identifies the caller for rate limiting: the authenticated user
// when there is one, the client address otherwise.
func (r *ClientIPResolver) LimitKey(req *http.Request) string {
	if userID := GetUserID(req); userID != "" {
		return "user:" + userID
	}
	return "ip:" + r.Resolve(req)
}

func (r *ClientIPResolver) isTrusted(addr netip.Addr) bool {
	for _, prefix := range r.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// parseAddr accepts "ip", "ip:port", "[v6]:port" and quoted forms.
func parseAddr(raw string) (netip.Addr, bool) {
	value := strings.Trim(strings.TrimSpace(raw), `"`)
	if value == "" {
		return netip.Addr{}, false
	}

	if addr, err := netip.ParseAddr(value); err == nil {
		return addr.Unmap(), true
	}
	if host, _, err := net.SplitHostPort(value); err == nil {
		if addr, err := netip.ParseAddr(strings.Trim(host, "[]")); err == nil {
			return addr.Unmap(), true
		}
	}
	return netip.Addr{}, false
}
