package useragent

import (
	"net/http"
	"strings"
)

type browserRule struct {
	name    string
	token   string
	exclude string
}

// Order matters: Edge and Chrome both advertise Safari.
var browsers = []browserRule{
	{name: "Edge", token: "Edg/"},
	{name: "Chrome", token: "Chrome/"},
	{name: "Firefox", token: "Firefox/"},
	{name: "Safari", token: "Safari/", exclude: "Chrome"},
}

var systems = []struct{ token, name string }{
	{"Windows NT 10.0", "Windows 10/11"},
	{"Windows", "Windows"},
	{"Android", "Android"},
	{"iPhone", "iOS"},
	{"iPad", "iOS"},
	{"Mac OS X", "macOS"},
	{"Linux", "Linux"},
}

// Describe renders a short "Browser N on OS" label for a User-Agent string.
func Describe(ua string) string {
	if ua == "" {
		return "Unknown Device"
	}

	browser, version := "Unknown Browser", ""
	for _, b := range browsers {
		idx := strings.Index(ua, b.token)
		if idx == -1 || (b.exclude != "" && strings.Contains(ua, b.exclude)) {
			continue
		}
		browser = b.name
		version = majorVersion(ua[idx+len(b.token):])
		break
	}

	os := "Unknown OS"
	for _, s := range systems {
		if strings.Contains(ua, s.token) {
			os = s.name
			break
		}
	}

	if version != "" {
		return browser + " " + version + " on " + os
	}
	return browser + " on " + os
}

func majorVersion(s string) string {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}

// ExtractDeviceInfo describes the client device of r.
func ExtractDeviceInfo(r *http.Request) string {
	return Describe(r.Header.Get("User-Agent"))
}
