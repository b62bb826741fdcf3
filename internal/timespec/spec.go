/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package timespec parses and evaluates the recurring and absolute time
// window specifications used to decide uptime/downtime for a workload.
package timespec

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var weekdays = []string{"MON", "TUE", "WED", "THU", "FRI", "SAT", "SUN"}

// recurringPattern matches "Mon-Fri 07:30-20:30 Europe/Berlin". The hour
// component allows 24 so that "00:00-24:00" can express an inclusive full
// day via an exclusive upper bound of 1440 minutes.
var recurringPattern = regexp.MustCompile(`^([a-zA-Z]{3})-([a-zA-Z]{3}) (\d\d):(\d\d)-(\d\d):(\d\d) ([a-zA-Z/_]+)$`)

const isoTimeSpecGroup = `(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}[-+]\d{2}:\d{2})`

var absolutePattern = regexp.MustCompile(`^` + isoTimeSpecGroup + `-` + isoTimeSpecGroup + `$`)

// ValueError reports a malformed sub-spec. The whole TimeSpec is rejected
// when any comma-separated sub-spec fails to parse.
type ValueError struct {
	Spec string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf(
		`time spec value %q does not match format ("Mon-Fri 06:30-20:30 Europe/Berlin" or "2019-01-01T00:00:00+00:00-2019-01-02T12:34:56+00:00")`,
		e.Spec,
	)
}

// subSpec is a single OR'd member of a TimeSpec.
type subSpec struct {
	recurring *recurringWindow
	absolute  *absoluteWindow
}

type recurringWindow struct {
	dayFrom, dayTo       int
	minuteFrom, minuteTo int
	location             *time.Location
}

type absoluteWindow struct {
	from, to time.Time
}

// Spec is a parsed, ready-to-evaluate TimeSpec: an ordered, OR'd sequence of
// recurring or absolute windows, or one of the "always"/"never" sentinels.
type Spec struct {
	raw     string
	always  bool
	never   bool
	entries []subSpec
}

// Parse validates and compiles a comma-separated TimeSpec string. Parsing is
// strict: the first malformed sub-spec fails the entire spec.
func Parse(raw string) (*Spec, error) {
	trimmed := strings.TrimSpace(raw)
	switch strings.ToLower(trimmed) {
	case "always":
		return &Spec{raw: raw, always: true}, nil
	case "never":
		return &Spec{raw: raw, never: true}, nil
	}

	parts := strings.Split(raw, ",")
	entries := make([]subSpec, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		entry, err := parseSubSpec(part)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return &Spec{raw: raw, entries: entries}, nil
}

func parseSubSpec(s string) (subSpec, error) {
	if m := recurringPattern.FindStringSubmatch(s); m != nil {
		w, err := buildRecurringWindow(m)
		if err != nil {
			return subSpec{}, err
		}
		return subSpec{recurring: w}, nil
	}
	if m := absolutePattern.FindStringSubmatch(s); m != nil {
		w, err := buildAbsoluteWindow(m)
		if err != nil {
			return subSpec{}, err
		}
		return subSpec{absolute: w}, nil
	}
	return subSpec{}, &ValueError{Spec: s}
}

func weekdayIndex(name string) (int, bool) {
	upper := strings.ToUpper(name)
	for i, d := range weekdays {
		if d == upper {
			return i, true
		}
	}
	return 0, false
}

func buildRecurringWindow(m []string) (*recurringWindow, error) {
	dayFrom, ok := weekdayIndex(m[1])
	if !ok {
		return nil, &ValueError{Spec: strings.Join(m[1:], " ")}
	}
	dayTo, ok := weekdayIndex(m[2])
	if !ok {
		return nil, &ValueError{Spec: strings.Join(m[1:], " ")}
	}
	hourFrom, _ := strconv.Atoi(m[3])
	minFrom, _ := strconv.Atoi(m[4])
	hourTo, _ := strconv.Atoi(m[5])
	minTo, _ := strconv.Atoi(m[6])
	// 24:00 is allowed as an exclusive end-of-day (1440); anything past
	// that, or a minute component over 59, is malformed.
	if minFrom > 59 || minTo > 59 || hourFrom*60+minFrom > 24*60 || hourTo*60+minTo > 24*60 {
		return nil, &ValueError{Spec: strings.Join(m[1:], " ")}
	}
	loc, err := time.LoadLocation(m[7])
	if err != nil {
		return nil, &ValueError{Spec: m[7]}
	}
	return &recurringWindow{
		dayFrom:    dayFrom,
		dayTo:      dayTo,
		minuteFrom: hourFrom*60 + minFrom,
		minuteTo:   hourTo*60 + minTo,
		location:   loc,
	}, nil
}

func buildAbsoluteWindow(m []string) (*absoluteWindow, error) {
	from, err := time.Parse(time.RFC3339, m[1])
	if err != nil {
		return nil, &ValueError{Spec: m[1]}
	}
	to, err := time.Parse(time.RFC3339, m[2])
	if err != nil {
		return nil, &ValueError{Spec: m[2]}
	}
	return &absoluteWindow{from: from, to: to}, nil
}

// Matches reports whether instant falls within the spec. Sub-specs are OR'd
// together and evaluation short-circuits on the first match.
func (s *Spec) Matches(instant time.Time) bool {
	if s.always {
		return true
	}
	if s.never {
		return false
	}
	for _, entry := range s.entries {
		if entry.recurring != nil && matchesRecurring(instant, entry.recurring) {
			return true
		}
		if entry.absolute != nil && matchesAbsolute(instant, entry.absolute) {
			return true
		}
	}
	return false
}

func matchesRecurring(instant time.Time, w *recurringWindow) bool {
	local := instant.In(w.location)
	// Go's time.Monday == 1 ... time.Sunday == 0; remap to MON=0..SUN=6.
	wday := (int(local.Weekday()) + 6) % 7

	var dayMatches bool
	if w.dayFrom <= w.dayTo {
		dayMatches = w.dayFrom <= wday && wday <= w.dayTo
	} else {
		dayMatches = wday >= w.dayFrom || wday <= w.dayTo
	}

	minuteOfDay := local.Hour()*60 + local.Minute()
	timeMatches := w.minuteFrom <= minuteOfDay && minuteOfDay < w.minuteTo

	return dayMatches && timeMatches
}

func matchesAbsolute(instant time.Time, w *absoluteWindow) bool {
	return !instant.Before(w.from) && !instant.After(w.to)
}

// String returns the original spec text.
func (s *Spec) String() string {
	return s.raw
}

// IsNever reports whether the spec is the "never" sentinel, the signal the
// decider uses to tell an unset upscale/downscale period apart from one
// that's actually configured.
func (s *Spec) IsNever() bool {
	return s.never
}

// Matches is a one-shot convenience helper: parse then evaluate.
func Matches(instant time.Time, raw string) (bool, error) {
	spec, err := Parse(raw)
	if err != nil {
		return false, err
	}
	return spec.Matches(instant), nil
}
