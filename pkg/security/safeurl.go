// Copyright 2025 The flowrun Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package security provides request safety checks for flowrun steps.
package security

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"
)

// localhostNames are hostname spellings that always resolve to the local
// machine.
var localhostNames = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
	"0.0.0.0":   true,
}

// internalTLDs are suffixes conventionally used for non-public networks.
var internalTLDs = []string{".local", ".internal", ".corp", ".lan", ".home"}

// ValidateSafeURL checks that a URL is safe for server-side requests (SSRF
// protection).
//
// The URL must use http or https, carry a hostname, and must not point at
// localhost, private, loopback, link-local, multicast, or reserved address
// space, or at a hostname under a known internal TLD.
func ValidateSafeURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %q, must be http or https", parsed.Scheme)
	}

	hostname := parsed.Hostname()
	if hostname == "" {
		return fmt.Errorf("URL must have a hostname")
	}

	lower := strings.ToLower(hostname)
	if localhostNames[lower] {
		return fmt.Errorf("URLs pointing to localhost are not allowed")
	}

	if addr, err := netip.ParseAddr(hostname); err == nil {
		switch {
		case addr.IsLoopback():
			return fmt.Errorf("URLs pointing to loopback addresses are not allowed")
		case addr.IsPrivate():
			return fmt.Errorf("URLs pointing to private IP addresses are not allowed")
		case addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast():
			return fmt.Errorf("URLs pointing to link-local addresses are not allowed")
		case addr.IsMulticast():
			return fmt.Errorf("URLs pointing to multicast addresses are not allowed")
		case addr.IsUnspecified():
			return fmt.Errorf("URLs pointing to unspecified addresses are not allowed")
		}
	}

	for _, tld := range internalTLDs {
		if strings.HasSuffix(lower, tld) {
			return fmt.Errorf("URLs with internal TLD %q are not allowed", tld)
		}
	}

	return nil
}
