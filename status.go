// Copyright 2016 Google Inc. All Rights Reserved.
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
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// Status is the abstract interface a Builder reports progress through,
// grounded in the teacher's Status interface (status.go) but trimmed to
// the events this engine actually emits: no dyndep loading, no edge
// objects, just a source path and timing.
type Status interface {
	PlanHasTotalEdges(total int)
	BuildEdgeStarted(source string, startMillis int64)
	BuildEdgeFinished(source string, endMillis int64, success bool, output string)
	BuildStarted()
	BuildFinished()
}

// NullStatus discards every event; it's what Builder uses when the
// caller passes a nil Status.
type NullStatus struct{}

func NewNullStatus() *NullStatus { return &NullStatus{} }

func (*NullStatus) PlanHasTotalEdges(int)                             {}
func (*NullStatus) BuildEdgeStarted(string, int64)                    {}
func (*NullStatus) BuildEdgeFinished(string, int64, bool, string)     {}
func (*NullStatus) BuildStarted()                                     {}
func (*NullStatus) BuildFinished()                                    {}

// StatusPrinter prints a single, overwritten progress line while a
// build runs, the idiomatic-Go reshaping of the teacher's StatusPrinter
// + LinePrinter pair (status.go, line_printer.go): terminal smartness
// is detected with github.com/mattn/go-isatty instead of the teacher's
// unfinished is_smart_terminal, and a mutex protects the counters since
// BuildEdgeStarted/Finished are called concurrently from the worker
// pool rather than from one single-threaded builder loop.
type StatusPrinter struct {
	out           io.Writer
	smartTerminal bool
	supportsColor bool
	format        string

	mu                                       sync.Mutex
	startedEdges, finishedEdges, totalEdges  int
	runningEdges                             int
}

// NewStatusPrinter returns a StatusPrinter writing to out. The progress
// format string is read from CBOB_STATUS, the cbob analog of ninja's
// NINJA_STATUS, defaulting to "[%f/%t] ".
func NewStatusPrinter(out io.Writer) *StatusPrinter {
	if out == nil {
		out = os.Stdout
	}
	format := os.Getenv("CBOB_STATUS")
	if format == "" {
		format = "[%f/%t] "
	}
	smart := false
	if f, ok := out.(*os.File); ok {
		smart = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &StatusPrinter{
		out:           out,
		smartTerminal: smart,
		supportsColor: smart,
		format:        format,
	}
}

func (s *StatusPrinter) PlanHasTotalEdges(total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalEdges = total
}

func (s *StatusPrinter) BuildStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startedEdges, s.finishedEdges, s.runningEdges = 0, 0, 0
}

func (s *StatusPrinter) BuildFinished() {
	if s.smartTerminal {
		fmt.Fprint(s.out, "\n")
	}
}

func (s *StatusPrinter) BuildEdgeStarted(source string, startMillis int64) {
	s.mu.Lock()
	s.startedEdges++
	s.runningEdges++
	line := s.formatStatus() + source
	s.mu.Unlock()
	s.printLine(line)
}

func (s *StatusPrinter) BuildEdgeFinished(source string, endMillis int64, success bool, output string) {
	s.mu.Lock()
	s.finishedEdges++
	s.runningEdges--
	line := s.formatStatus() + source
	s.mu.Unlock()

	if !success {
		if s.supportsColor {
			fmt.Fprintf(s.out, "\x1b[31mFAILED:\x1b[0m %s\n", source)
		} else {
			fmt.Fprintf(s.out, "FAILED: %s\n", source)
		}
		if output != "" {
			fmt.Fprintln(s.out, output)
		}
		return
	}
	s.printLine(line)
}

func (s *StatusPrinter) printLine(line string) {
	if s.smartTerminal {
		fmt.Fprintf(s.out, "\r%s\x1b[K", line)
	} else {
		fmt.Fprintln(s.out, line)
	}
}

// formatStatus replaces the same placeholders the teacher's
// FormatProgressStatus supports (status.go), minus the ones tied to
// ninja edges this engine has no equivalent of (%r is kept as running
// job count, %o/%c rate placeholders are dropped — there is no
// per-millisecond timing source threaded through Builder yet).
func (s *StatusPrinter) formatStatus() string {
	var b strings.Builder
	for i := 0; i < len(s.format); i++ {
		c := s.format[i]
		if c != '%' || i+1 >= len(s.format) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s.format[i] {
		case '%':
			b.WriteByte('%')
		case 's':
			b.WriteString(strconv.Itoa(s.startedEdges))
		case 't':
			b.WriteString(strconv.Itoa(s.totalEdges))
		case 'r':
			b.WriteString(strconv.Itoa(s.runningEdges))
		case 'u':
			b.WriteString(strconv.Itoa(s.totalEdges - s.startedEdges))
		case 'f':
			b.WriteString(strconv.Itoa(s.finishedEdges))
		case 'p':
			pct := 0
			if s.totalEdges > 0 {
				pct = (100 * s.finishedEdges) / s.totalEdges
			}
			fmt.Fprintf(&b, "%3d%%", pct)
		default:
			b.WriteByte('%')
			b.WriteByte(s.format[i])
		}
	}
	return b.String()
}
