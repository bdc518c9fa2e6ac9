// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

package httpoffice

import (
	"context"
	"net"
	"net/url"

	deckerr "github.com/deckport/deckport/pkg/errors"
)

// ValidateEndpoint rejects endpoints whose host resolves into
// non-routable address space, so a hostile or mistaken configuration
// cannot use the renderer to reach loopback services, link-local
// metadata endpoints, or internal networks. The check runs before any
// connection is attempted. allowPrivate opts back in for deployments
// that legitimately run the conversion service on an internal network.
func ValidateEndpoint(ctx context.Context, endpoint string, allowPrivate bool) error {
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return deckerr.Errorf(deckerr.CodeUnavailable,
			"http_office.endpoint must be an http(s) URL")
	}
	if allowPrivate {
		return nil
	}

	host := u.Hostname()
	if ip := net.ParseIP(host); ip != nil {
		if reason := deniedIP(ip); reason != "" {
			return deniedErr(endpoint, host, reason)
		}
		return nil
	}

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return deckerr.Wrapf(err, deckerr.CodeUnavailable,
			"resolving http_office endpoint host %q", host)
	}
	for _, addr := range addrs {
		if reason := deniedIP(addr.IP); reason != "" {
			return deniedErr(endpoint, addr.IP.String(), reason)
		}
	}
	return nil
}

// deniedIP classifies an address against the deny-list of non-routable
// ranges. IsPrivate covers RFC 1918 and IPv6 unique-local space.
func deniedIP(ip net.IP) string {
	switch {
	case ip.IsUnspecified():
		return "unspecified address"
	case ip.IsLoopback():
		return "loopback address"
	case ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast(), ip.IsInterfaceLocalMulticast():
		return "link-local address"
	case ip.IsPrivate():
		return "private address range"
	default:
		return ""
	}
}

func deniedErr(endpoint, addr, reason string) error {
	return deckerr.New(deckerr.CodePermissionDenied,
		"http_office endpoint resolves to a disallowed "+reason+
			"; set http_office.allow_private to use an internal conversion service",
		deckerr.FieldEndpoint(endpoint),
		deckerr.Field("address", addr),
	)
}
