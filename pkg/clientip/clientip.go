// Package clientip resolves the address of the client behind an HTTP request.
//
// Forwarding headers are spoofable, so a Resolver only reads them when the
// direct peer is a trusted proxy. With no trusted proxies the peer address
// from RemoteAddr is the answer.
//
//	r := clientip.New(clientip.WithTrustedProxies("10.0.0.0/8"))
//	router.Use(r.Middleware)
//	...
//	ip := clientip.FromContext(ctx)
package clientip

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// DefaultHeaders are consulted in order when the peer is trusted.
var DefaultHeaders = []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}

// Resolver extracts client addresses.
type Resolver struct {
	trusted []netip.Prefix
	headers []string
}

type Option func(*Resolver)

// WithTrustedProxies parses CIDRs or single addresses. It panics on invalid
// input since proxy lists are static configuration.
func WithTrustedProxies(cidrs ...string) Option {
	return func(r *Resolver) {
		for _, c := range cidrs {
			c = strings.TrimSpace(c)
			if c == "" {
				continue
			}
			p, err := parsePrefix(c)
			if err != nil {
				panic(fmt.Sprintf("clientip: invalid trusted proxy %q: %v", c, err))
			}
			r.trusted = append(r.trusted, p)
		}
	}
}

// WithHeaders replaces DefaultHeaders.
func WithHeaders(headers ...string) Option {
	return func(r *Resolver) {
		if len(headers) > 0 {
			r.headers = headers
		}
	}
}

func New(opts ...Option) *Resolver {
	r := &Resolver{headers: DefaultHeaders}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IP returns the normalized client address or "" when none can be parsed.
func (r *Resolver) IP(req *http.Request) string {
	peer, ok := peerAddr(req.RemoteAddr)
	if !ok {
		return ""
	}
	if !r.isTrusted(peer) {
		return peer.String()
	}

	for _, h := range r.headers {
		v := req.Header.Get(h)
		if v == "" {
			continue
		}
		if strings.EqualFold(h, "X-Forwarded-For") {
			if ip, ok := r.fromForwardedFor(v); ok {
				return ip.String()
			}
			continue
		}
		if ip, err := netip.ParseAddr(strings.TrimSpace(v)); err == nil {
			return ip.Unmap().String()
		}
	}
	return peer.String()
}

// fromForwardedFor walks the chain right to left and returns the first hop
// that is not a trusted proxy. Entries left of it could be forged.
func (r *Resolver) fromForwardedFor(v string) (netip.Addr, bool) {
	hops := strings.Split(v, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		ip, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			return netip.Addr{}, false
		}
		ip = ip.Unmap()
		if !r.isTrusted(ip) {
			return ip, true
		}
	}
	return netip.Addr{}, false
}

func (r *Resolver) isTrusted(ip netip.Addr) bool {
	for _, p := range r.trusted {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}

func peerAddr(remote string) (netip.Addr, bool) {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		host = remote
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return ip.Unmap(), true
}

func parsePrefix(s string) (netip.Prefix, error) {
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		return p.Masked(), err
	}
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	ip = ip.Unmap()
	return netip.PrefixFrom(ip, ip.BitLen()), nil
}
