package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	languageMarker    = "Detected language:"
	probabilityMarker = "probability:"
)

// parseDetectedLanguage scans engine stdout for the first line reporting a
// detected language. found is false when no line carries the marker.
func parseDetectedLanguage(stdout string) (result LanguageResult, found bool, err error) {
	for _, line := range splitLines(stdout) {
		_, rest, ok := strings.Cut(line, languageMarker)
		if !ok {
			continue
		}

		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return LanguageResult{}, true, fmt.Errorf("no language code in %q", line)
		}

		confidence := 1.0
		if _, after, ok := strings.Cut(line, probabilityMarker); ok {
			confidence, err = parseProbability(after)
			if err != nil {
				return LanguageResult{}, true, fmt.Errorf("parse probability in %q: %w", line, err)
			}
		}

		return LanguageResult{Code: fields[0], Confidence: confidence}, true, nil
	}

	return LanguageResult{}, false, nil
}

// splitLines breaks on both \n and \r so carriage-return progress updates
// count as separate lines. Line length is unbounded.
func splitLines(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '\n' || r == '\r'
	})
}

func parseProbability(value string) (float64, error) {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty value")
	}

	p, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, fmt.Errorf("%v outside [0,1]", p)
	}
	return p, nil
}
