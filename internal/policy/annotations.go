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

package policy

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cloudshift-oss/downscaler/internal/timespec"
)

// excludeUntilLayouts are tried in order; the first that parses wins.
var excludeUntilLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseExclude treats "false" (case-insensitive) as the only value that does
// not exclude: any other value, including typos, excludes the resource.
func ParseExclude(value string) bool {
	return !strings.EqualFold(value, "false")
}

// ParseExcludeUntil parses a downscaler/exclude-until value and reports
// whether now falls before it. ok is false when the value can't be parsed by
// any accepted layout; the caller should log a warning and treat the
// workload as not excluded by this annotation in that case.
func ParseExcludeUntil(value string, now time.Time) (excluded bool, ok bool) {
	t, err := ParseTimestamp(value)
	if err != nil {
		return false, false
	}
	return now.Before(t), true
}

// ParseTimestamp tries the accepted downscaler timestamp layouts in order
// and fixes the result to UTC. The same contract covers exclude-until and
// the deployment-time grace anchor.
func ParseTimestamp(value string) (time.Time, error) {
	for _, layout := range excludeUntilLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("policy: %q does not match any accepted timestamp layout", value)
}

// ParseDowntimeReplicas parses downscaler/downtime-replicas: a non-negative
// integer, or an error the caller logs and uses to skip the workload.
func ParseDowntimeReplicas(value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("policy: invalid downtime-replicas value %q", value)
	}
	return n, nil
}

// ParseForceUptime parses downscaler/force-uptime. Pod-level annotations only
// accept "true"/"false"; namespace-level annotations may additionally carry a
// TimeSpec, evaluated against now. Workload-level values are not a
// force-uptime source at all and never reach this function.
func ParseForceUptime(value string, allowTimeSpec bool, now time.Time) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	if !allowTimeSpec {
		return false, fmt.Errorf("policy: force-uptime must be \"true\" or \"false\" here, got %q", value)
	}
	spec, err := timespec.Parse(value)
	if err != nil {
		return false, err
	}
	return spec.Matches(now), nil
}
