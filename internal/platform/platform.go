// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package platform

import (
	"regexp"
	"strconv"
	"strings"
)

// OS is the operating system family reported by the browser.
type OS string

const (
	Windows    OS = "windows"
	Android    OS = "android"
	MacOS      OS = "macos"
	IOS        OS = "ios"
	LinuxBased OS = "linuxBased"
	UnknownOS  OS = "unknown"
)

// Browser is the browser family.
type Browser string

const (
	Chrome         Browser = "chrome"
	Edge           Browser = "edge"
	Safari         Browser = "safari"
	Firefox        Browser = "firefox"
	UnknownBrowser Browser = "unknown"
)

// Info describes the platform a motion session runs on. It is computed
// once and never mutated.
type Info struct {
	OS      OS      `json:"os"`
	Browser Browser `json:"browser"`
	Version *int    `json:"version,omitempty"` // major Chrome version, nil when unknown
}

var chromeVersionRe = regexp.MustCompile(`Chrom(e|ium)/([0-9]+)\.`)

// Detect derives OS and browser family from a user agent string.
func Detect(userAgent string) Info {
	return DetectWith(userAgent, 0)
}

// DetectWith is Detect with the page's navigator.maxTouchPoints. iPadOS
// sends a Macintosh user agent by default; only touch support tells it
// apart from a Mac.
func DetectWith(userAgent string, touchPoints int) Info {
	info := Info{
		OS:      detectOS(userAgent, touchPoints),
		Browser: detectBrowser(userAgent),
	}
	if info.Browser == Chrome {
		info.Version = chromeVersion(userAgent)
	}
	return info
}

// IsAndroidChrome reports whether the platform is Chrome on Android.
func (i Info) IsAndroidChrome() bool {
	return i.OS == Android && i.Browser == Chrome
}

// IsAndroidFirefox reports whether the platform is Firefox on Android.
func (i Info) IsAndroidFirefox() bool {
	return i.OS == Android && i.Browser == Firefox
}

func (i Info) String() string {
	s := string(i.OS) + "/" + string(i.Browser)
	if i.Version != nil {
		s += " " + strconv.Itoa(*i.Version)
	}
	return s
}

func detectOS(ua string, touchPoints int) OS {
	switch {
	case strings.Contains(ua, "Windows"):
		return Windows
	case strings.Contains(ua, "Android"):
		return Android
	case strings.Contains(ua, "iPhone"), strings.Contains(ua, "iPad"), strings.Contains(ua, "iPod"):
		return IOS
	case strings.Contains(ua, "Macintosh") && touchPoints > 1:
		return IOS
	case strings.Contains(ua, "Mac OS X"), strings.Contains(ua, "Macintosh"):
		return MacOS
	case strings.Contains(ua, "Linux"), strings.Contains(ua, "X11"), strings.Contains(ua, "CrOS"):
		return LinuxBased
	}
	return UnknownOS
}

// Order matters: Edge and Chrome both carry "Chrome/" and "Safari/", and
// Chrome carries "Safari/".
func detectBrowser(ua string) Browser {
	switch {
	case strings.Contains(ua, "Edg/"), strings.Contains(ua, "Edge/"),
		strings.Contains(ua, "EdgA/"), strings.Contains(ua, "EdgiOS/"):
		return Edge
	case strings.Contains(ua, "Firefox/"), strings.Contains(ua, "FxiOS/"):
		return Firefox
	case strings.Contains(ua, "Chrome/"), strings.Contains(ua, "Chromium/"), strings.Contains(ua, "CriOS/"):
		return Chrome
	case strings.Contains(ua, "Safari/"):
		return Safari
	}
	return UnknownBrowser
}

func chromeVersion(ua string) *int {
	m := chromeVersionRe.FindStringSubmatch(ua)
	if m == nil {
		return nil
	}
	v, err := strconv.Atoi(m[2])
	if err != nil {
		return nil
	}
	return &v
}
