// Copyright 2012 Google Inc. All Rights Reserved.
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

package cbob

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// Fingerprint turns an absolute or relative path into the flat,
// separator-free identifier used to name a source's derived artifacts.
// It mirrors mangle_path from the original source: make path absolute,
// express it relative to root, normalize it, and replace path
// separators with underscores so the result is a valid single path
// component on every platform.
func Fingerprint(root, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", err
	}
	rel = filepath.Clean(rel)
	return strings.ReplaceAll(rel, string(filepath.Separator), "_"), nil
}

// ObjectPath returns the compiled-object path for a source fingerprint.
func ObjectPath(stateDir, fp string) string {
	return filepath.Join(stateDir, fp+".o")
}

// HeaderFingerprint is the content address described in spec.md §4.1:
// a hash of the ordered list of headers a source includes. Unlike the
// original source's mangle_path-derived, per-source aggregated-header
// name, this name changes whenever the inclusion set changes, which is
// what makes cache invalidation by construction hold (IP5) and what
// lets two sources with identical inclusion sets share one precompiled
// header.
func HeaderFingerprint(orderedIncludes []string) string {
	h := sha256.New()
	for _, inc := range orderedIncludes {
		h.Write([]byte(inc))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// AggregatedHeaderPath returns the path of the synthesized header that
// #includes every header in a source's inclusion set, named by
// HeaderFingerprint so its identity tracks its content.
func AggregatedHeaderPath(stateDir, headerFP string) string {
	return filepath.Join(stateDir, "h_"+headerFP+".h")
}

// PrecompiledHeaderPath returns the path of the compiled form of the
// aggregated header described above.
func PrecompiledHeaderPath(stateDir, headerFP string) string {
	return filepath.Join(stateDir, "h_"+headerFP+".h.gch")
}
