// Package progress reconstructs structured progress from the free-text log
// an executor emits. Parsing is pure and deterministic so it can run on
// every read without coordination; nothing here touches the run store.
package progress

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/eval-bench/eval-bench/pkg/api"
)

var (
	// "Starting MMLU..." or "Starting MMLU benchmark"
	startMarker = regexp.MustCompile(`(?i)\bstarting\s+(.+?)\s*$`)
	// "Progress: 40%" with an optional "Acc: 70%" / "Accuracy: 70%" suffix.
	// An optional benchmark display name may precede the marker, e.g.
	// "MMLU progress: 40%".
	progressMarker = regexp.MustCompile(`(?i)^\s*(.*?)\s*progress:\s*(\d+(?:\.\d+)?)\s*%`)
	accuracyMarker = regexp.MustCompile(`(?i)\bacc(?:uracy)?:\s*(\d+(?:\.\d+)?)\s*%`)
)

// Derive scans log lines and returns the structured progress snapshot.
//
// The most recent "starting" marker names the current benchmark; only
// progress lines after that marker are considered, and among those any line
// whose embedded benchmark name does not match the current benchmark is
// skipped. This keeps percent and accuracy from a finished benchmark out of
// the reading for the one that just started.
func Derive(lines []api.LogLine) api.ProgressSnapshot {
	snapshot := api.ProgressSnapshot{LastLogIndex: len(lines) - 1}

	current, startIdx := currentBenchmark(lines)
	if current == "" {
		return snapshot
	}
	snapshot.CurrentBenchmark = &current

	wanted := normalizeBenchmarkName(current)
	for i := len(lines) - 1; i > startIdx; i-- {
		name, percent, accuracy, ok := parseProgressLine(lines[i].Text)
		if !ok {
			continue
		}
		if name != "" && normalizeBenchmarkName(name) != wanted {
			// stale line from an earlier benchmark
			continue
		}
		snapshot.Percent = percent
		snapshot.Accuracy = accuracy
		return snapshot
	}
	// benchmark announced but no progress line for it yet
	return snapshot
}

// currentBenchmark returns the display name from the most recent starting
// marker and that marker's index, or "" and -1.
func currentBenchmark(lines []api.LogLine) (string, int) {
	for i := len(lines) - 1; i >= 0; i-- {
		m := startMarker.FindStringSubmatch(lines[i].Text)
		if m == nil {
			continue
		}
		name := strings.TrimRight(m[1], ".!… ")
		name = strings.TrimSuffix(name, " benchmark")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		return name, i
	}
	return "", -1
}

func parseProgressLine(text string) (name string, percent float64, accuracy *float64, ok bool) {
	m := progressMarker.FindStringSubmatch(text)
	if m == nil {
		return "", 0, nil, false
	}
	name = strings.Trim(m[1], "[]() \t")
	percent, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return "", 0, nil, false
	}
	if a := accuracyMarker.FindStringSubmatch(text); a != nil {
		if v, err := strconv.ParseFloat(a[1], 64); err == nil {
			accuracy = &v
		}
	}
	return name, percent, accuracy, true
}

// normalizeBenchmarkName lowercases and strips everything that is not a
// letter or digit, so "Do-Not-Answer" and "donotanswer" compare equal.
func normalizeBenchmarkName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
