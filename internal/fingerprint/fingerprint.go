// Package fingerprint derives a stable pseudo-identity for the device behind
// an HTTP request. The result is a heuristic used only to surface "new
// device" conditions; it is not an authentication factor.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net"
	"net/http"
	"strings"
)

const (
	unknown = "unknown"
	none    = "none"

	// ClientSignalHeader carries an optional JSON bundle of browser-side
	// signals collected by the frontend.
	ClientSignalHeader = "X-Device-Fingerprint"
)

// ClientSignals is the optional browser-supplied signal bundle.
type ClientSignals struct {
	Screen              string `json:"screen"`
	Timezone            string `json:"timezone"`
	HardwareConcurrency string `json:"hardwareConcurrency"`
	DeviceMemory        string `json:"deviceMemory"`
	Canvas              string `json:"canvas"`
	WebGL               string `json:"webgl"`
}

// Signals is the full, canonicalizable input set for one fingerprint.
// Zero-value fields are replaced with explicit placeholders during
// derivation so the hash is computable with partial data.
type Signals struct {
	UserAgent      string
	IP             string
	AcceptLanguage string
	DNT            string
	SecChUA        string
	SecChUAMobile  string
	Client         ClientSignals
}

// FromRequest extracts fingerprint signals from r. The client IP follows a
// fixed header precedence: CDN (CF-Connecting-IP), then load balancer
// (first X-Forwarded-For hop), then X-Real-IP, then the socket address.
func FromRequest(r *http.Request) Signals {
	s := Signals{
		UserAgent:      r.UserAgent(),
		IP:             ClientIP(r),
		AcceptLanguage: r.Header.Get("Accept-Language"),
		DNT:            r.Header.Get("DNT"),
		SecChUA:        r.Header.Get("Sec-CH-UA"),
		SecChUAMobile:  r.Header.Get("Sec-CH-UA-Mobile"),
	}

	if raw := r.Header.Get(ClientSignalHeader); raw != "" {
		// A bundle that fails to parse is treated as absent.
		var client ClientSignals
		if err := json.Unmarshal([]byte(raw), &client); err == nil {
			s.Client = client
		}
	}

	return s
}

// ClientIP resolves the first non-proxy hop for r.
func ClientIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return unknown
}

// Derive returns the hex SHA-256 of the canonicalized signal set. The same
// signals always produce the same fingerprint; any contributing field
// changing changes it.
func Derive(s Signals) string {
	fields := []string{
		"ua=" + orPlaceholder(s.UserAgent, unknown),
		"ip=" + orPlaceholder(s.IP, unknown),
		"lang=" + orPlaceholder(s.AcceptLanguage, unknown),
		"dnt=" + orPlaceholder(s.DNT, "0"),
		"sec-ch-ua=" + orPlaceholder(s.SecChUA, none),
		"sec-ch-ua-mobile=" + orPlaceholder(s.SecChUAMobile, "?0"),
		"screen=" + orPlaceholder(s.Client.Screen, unknown),
		"tz=" + orPlaceholder(s.Client.Timezone, unknown),
		"hw=" + orPlaceholder(s.Client.HardwareConcurrency, unknown),
		"mem=" + orPlaceholder(s.Client.DeviceMemory, unknown),
		"canvas=" + orPlaceholder(s.Client.Canvas, none),
		"webgl=" + orPlaceholder(s.Client.WebGL, none),
	}

	sum := sha256.Sum256([]byte(strings.Join(fields, "\n")))
	return hex.EncodeToString(sum[:])
}

func orPlaceholder(v, placeholder string) string {
	if v == "" {
		return placeholder
	}
	return v
}
