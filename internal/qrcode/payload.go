package qrcode

import (
	"net/url"
	"strings"
)

// ViewURL is the payload encoded in every generated code. Printed codes
// depend on this exact shape.
func ViewURL(origin, adSpaceID string) string {
	return strings.TrimRight(origin, "/") + "/view?ad=" + url.QueryEscape(adSpaceID)
}

// CodeURL is the variant that carries a distinct code identifier, optionally
// followed by the ad space it resolves to.
func CodeURL(origin, codeID, adSpaceID string) string {
	u := strings.TrimRight(origin, "/") + "/view?qr=" + url.QueryEscape(codeID)
	if adSpaceID != "" {
		u += "&ad=" + url.QueryEscape(adSpaceID)
	}
	return u
}

// ParseViewQuery extracts the ad space and code identifiers from a viewer
// URL query.
func ParseViewQuery(q url.Values) (adSpaceID, codeID string) {
	return strings.TrimSpace(q.Get("ad")), strings.TrimSpace(q.Get("qr"))
}
