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
	"time"

	"github.com/cloudshift-oss/downscaler/internal/workload"
)

// IsExcluded reports whether a, typically a *workload.Workload, is excluded
// at now via downscaler/exclude or downscaler/exclude-until. warn, if
// non-nil, is called with a message when exclude-until carries an
// unparseable value; that case warns and does not exclude.
func IsExcluded(a Annotated, now time.Time, warn func(msg string)) bool {
	if v, ok := a.Annotation(workload.AnnotationExclude); ok && ParseExclude(v) {
		return true
	}

	if v, ok := a.Annotation(workload.AnnotationExcludeUntil); ok {
		excluded, valid := ParseExcludeUntil(v, now)
		if !valid {
			if warn != nil {
				warn("invalid downscaler/exclude-until value: " + v)
			}
			return false
		}
		if excluded {
			return true
		}
	}

	return false
}
