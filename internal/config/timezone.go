package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ResolveTimezoneLocation accepts an IANA name or a fixed offset such as
// "+07:00", "-0530", "UTC+7" or "GMT+07:00". Empty means DefaultTimezone.
func ResolveTimezoneLocation(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		tz = DefaultTimezone
	}

	switch strings.ToUpper(tz) {
	case "ICT", "HANOI", "ASIA/HO_CHI_MINH", "ASIA/SAIGON":
		if loc, err := time.LoadLocation("Asia/Ho_Chi_Minh"); err == nil {
			return loc, nil
		}
		return time.FixedZone("UTC+07:00", 7*60*60), nil
	}

	if loc, ok, err := parseFixedOffset(tz); err != nil {
		return nil, err
	} else if ok {
		return loc, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q (try \"+07:00\" or \"Asia/Ho_Chi_Minh\"): %w", tz, err)
	}
	return loc, nil
}

func parseFixedOffset(raw string) (*time.Location, bool, error) {
	s := strings.TrimSpace(raw)
	u := strings.ToUpper(s)
	if strings.HasPrefix(u, "UTC") || strings.HasPrefix(u, "GMT") {
		s = strings.TrimSpace(s[3:])
		if s == "" {
			return time.UTC, true, nil
		}
	}
	if s == "" {
		return nil, false, nil
	}

	sign := 1
	switch s[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return nil, false, nil
	}
	s = strings.TrimSpace(s[1:])
	bad := fmt.Errorf("invalid timezone offset %q", raw)

	var hh, mm string
	switch {
	case strings.Contains(s, ":"):
		parts := strings.Split(s, ":")
		if len(parts) != 2 {
			return nil, false, bad
		}
		hh, mm = parts[0], parts[1]
	case len(s) == 1 || len(s) == 2:
		hh, mm = s, "0"
	case len(s) == 3 || len(s) == 4:
		s = strings.Repeat("0", 4-len(s)) + s
		hh, mm = s[:2], s[2:]
	default:
		return nil, false, bad
	}

	hours, err := parseDigits(hh)
	if err != nil {
		return nil, false, bad
	}
	mins, err := parseDigits(mm)
	if err != nil {
		return nil, false, bad
	}
	if hours > 14 || mins > 59 {
		return nil, false, bad
	}

	offset := sign * (hours*60*60 + mins*60)
	name := fmt.Sprintf("UTC%+03d:%02d", sign*hours, mins)
	return time.FixedZone(name, offset), true, nil
}

func parseDigits(s string) (int, error) {
	if s == "" || len(s) > 2 || strings.TrimLeft(s, "0123456789") != "" {
		return 0, fmt.Errorf("invalid number")
	}
	return strconv.Atoi(s)
}
