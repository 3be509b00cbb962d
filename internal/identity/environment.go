package identity

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Environment holds the stable host attributes folded into the device fingerprint.
type Environment struct {
	UserAgent           string
	Language            string
	ScreenWidth         int
	ScreenHeight        int
	ColorDepth          int
	TimeZone            string
	TZOffsetMinutes     int // minutes behind UTC, positive west of Greenwich
	Platform            string
	HardwareConcurrency int
	DeviceMemory        string
}

// Fingerprint joins the attributes in a fixed order.
func (e Environment) Fingerprint() string {
	memory := e.DeviceMemory
	if memory == "" {
		memory = "unknown"
	}
	return strings.Join([]string{
		e.UserAgent,
		e.Language,
		strconv.Itoa(e.ScreenWidth),
		strconv.Itoa(e.ScreenHeight),
		strconv.Itoa(e.ColorDepth),
		e.TimeZone,
		strconv.Itoa(e.TZOffsetMinutes),
		e.Platform,
		strconv.Itoa(e.HardwareConcurrency),
		memory,
	}, "|")
}

// HostEnvironment describes the current process. Screen metrics are unknown outside a
// browser and stay zero.
func HostEnvironment(userAgent string) Environment {
	lang := os.Getenv("LC_ALL")
	if lang == "" {
		lang = os.Getenv("LANG")
	}
	if i := strings.IndexAny(lang, ".@"); i >= 0 {
		lang = lang[:i]
	}
	lang = strings.ReplaceAll(lang, "_", "-")

	_, offset := time.Now().Zone()
	return Environment{
		UserAgent:           userAgent,
		Language:            lang,
		TimeZone:            time.Local.String(),
		TZOffsetMinutes:     -offset / 60,
		Platform:            runtime.GOOS + "/" + runtime.GOARCH,
		HardwareConcurrency: runtime.NumCPU(),
	}
}
