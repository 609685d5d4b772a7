package security

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// blockedHostnames are loopback / any-interface literals rejected outright.
var blockedHostnames = []string{
	"localhost",
	"127.0.0.1",
	"0.0.0.0",
	"::1",
	"::",
}

// privateCIDRs cover RFC-1918, link-local, and their IPv6 equivalents.
// Fetching from these ranges is refused to prevent SSRF-style access to
// internal services.
var privateCIDRs = func() []*net.IPNet {
	ranges := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16",
		"127.0.0.0/8",
		"::1/128",
		"fe80::/10",
		"fc00::/7",
	}
	nets := make([]*net.IPNet, 0, len(ranges))
	for _, r := range ranges {
		_, cidr, err := net.ParseCIDR(r)
		if err != nil {
			panic(err)
		}
		nets = append(nets, cidr)
	}
	return nets
}()

// CheckURL parses and classifies a URL. Only http and https schemes are
// accepted; loopback and private-range hosts are refused. The check is pure:
// no DNS resolution happens here.
func CheckURL(rawURL string) Verdict {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return deny(SeverityLow, fmt.Sprintf("malformed URL: %v", err), "")
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return deny(SeverityMedium,
			fmt.Sprintf("scheme %q is not allowed (only http and https)", parsed.Scheme), "")
	}

	host := parsed.Hostname()
	if host == "" {
		return deny(SeverityLow, "URL has no hostname", "")
	}

	lowerHost := strings.ToLower(host)
	for _, blocked := range blockedHostnames {
		if lowerHost == blocked {
			return deny(SeverityHigh,
				fmt.Sprintf("host %s is a loopback or any-interface address", host), "")
		}
	}

	if ip := net.ParseIP(host); ip != nil {
		for _, cidr := range privateCIDRs {
			if cidr.Contains(ip) {
				return deny(SeverityHigh,
					fmt.Sprintf("host %s is in a private address range", host), "")
			}
		}
	}

	return allow()
}
