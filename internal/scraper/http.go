package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

const maxRedirects = 5

var (
	ErrPrivateAddress = errors.New("connection to a private address is not allowed")
	ErrInsecureScheme = errors.New("only https URLs may be fetched")
)

var dialer = &net.Dialer{
	Timeout:   10 * time.Second,
	KeepAlive: 60 * time.Second,
}

// NewTransport returns a transport that refuses to connect to loopback,
// private, link-local and otherwise non-public addresses. The check runs on
// resolved IPs, so DNS names pointing inside the network are refused too.
func NewTransport() *http.Transport {
	return &http.Transport{
		DialContext:         safeDialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  false,
	}
}

func safeDialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)

	if err != nil {
		return nil, fmt.Errorf("invalid address %s: %w", addr, err)
	}

	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)

	if err != nil {
		return nil, fmt.Errorf("could not resolve %s: %w", host, err)
	}

	for _, ip := range ips {
		if !IsPublicIP(ip.IP) {
			return nil, fmt.Errorf("%w: %s resolves to %s", ErrPrivateAddress, host, ip.IP)
		}
	}

	var lastErr error

	for _, ip := range ips {
		conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip.IP.String(), port))

		if err == nil {
			return conn, nil
		}

		lastErr = err
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no addresses for %s", host)
	}

	return nil, lastErr
}

// IsPublicIP reports whether ip is a globally routable unicast address.
func IsPublicIP(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil {
		ip = ip4

		// Carrier-grade NAT, 100.64.0.0/10
		if ip[0] == 100 && ip[1]&0xc0 == 64 {
			return false
		}
	}

	return !(ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast())
}

// HTTPSOnly is a CheckRedirect policy that keeps redirect chains short and on
// https.
func HTTPSOnly(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("too many redirects (max %d)", maxRedirects)
	}

	if req.URL.Scheme != "https" {
		return fmt.Errorf("redirect to %s blocked: %w", req.URL.Redacted(), ErrInsecureScheme)
	}

	return nil
}

// NewClient returns a client using the given transport and the https-only
// redirect policy. Timeouts are applied per request through contexts.
func NewClient(rt http.RoundTripper) *http.Client {
	if rt == nil {
		rt = NewTransport()
	}

	return &http.Client{
		Transport:     rt,
		CheckRedirect: HTTPSOnly,
	}
}
