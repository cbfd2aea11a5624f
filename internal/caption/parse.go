package caption

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Matches "00:00:01.230 --> 00:00:04.560" (VTT) and "00:00:01,230 --> 00:00:04,560"
// (SRT); the hour field is optional. Trailing cue settings after the range are ignored.
var timeRangeRegex = regexp.MustCompile(`^((?:\d{1,2}:)?\d{1,2}:\d{2}[.,]\d{1,3})\s+-->\s+((?:\d{1,2}:)?\d{1,2}:\d{2}[.,]\d{1,3})`)

var styleTagRegex = regexp.MustCompile(`<[^>]*>`)

// Parse converts raw caption text into ordered cues. Header lines before the
// first timed block (WEBVTT, NOTE, metadata) and optional cue-identifier lines
// are tolerated. Cues whose end time is not after their start time are dropped
// with a warning; structural problems return MalformedCaptionError.
func (p *implParser) Parse(ctx context.Context, raw string) ([]Cue, error) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")

	var cues []Cue
	seenTimedBlock := false

	i := 0
	for i < len(lines) {
		// Skip blank lines between blocks.
		if strings.TrimSpace(lines[i]) == "" {
			i++
			continue
		}

		blockStart := i
		var block []string
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
			block = append(block, strings.TrimSpace(lines[i]))
			i++
		}

		timeIdx := -1
		for j, line := range block {
			if timeRangeRegex.MatchString(line) {
				timeIdx = j
				break
			}
		}

		if timeIdx == -1 {
			// Everything before the first timed block is header material
			// (WEBVTT magic, NOTE comments, kind/language metadata).
			if !seenTimedBlock {
				continue
			}
			reason := "block has no time range"
			for _, line := range block {
				if strings.Contains(line, "-->") {
					reason = "invalid time range"
					break
				}
			}
			return nil, &MalformedCaptionError{Line: blockStart + 1, Reason: reason}
		}
		// At most one cue-identifier line may precede the time range.
		if timeIdx > 1 {
			return nil, &MalformedCaptionError{Line: blockStart + 1, Reason: "unexpected lines before time range"}
		}
		seenTimedBlock = true

		matches := timeRangeRegex.FindStringSubmatch(block[timeIdx])
		start, err := parseTimestamp(matches[1])
		if err != nil {
			return nil, &MalformedCaptionError{Line: blockStart + timeIdx + 1, Reason: err.Error()}
		}
		end, err := parseTimestamp(matches[2])
		if err != nil {
			return nil, &MalformedCaptionError{Line: blockStart + timeIdx + 1, Reason: err.Error()}
		}

		text := joinCueText(block[timeIdx+1:])
		if text == "" {
			return nil, &MalformedCaptionError{Line: blockStart + timeIdx + 1, Reason: "no text after time range"}
		}

		if end <= start {
			p.logger.Warn(ctx, "Dropping cue with non-positive duration at line %d (%v --> %v)", blockStart+timeIdx+1, start, end)
			continue
		}

		cues = append(cues, Cue{Start: start, End: end, Text: text})
	}

	return cues, nil
}

// joinCueText joins the physical lines of a cue with single spaces, strips
// inline styling tags and collapses whitespace runs.
func joinCueText(lines []string) string {
	joined := strings.Join(lines, " ")
	joined = styleTagRegex.ReplaceAllString(joined, "")
	return strings.Join(strings.Fields(joined), " ")
}

// parseTimestamp parses "HH:MM:SS.mmm", "MM:SS.mmm" and the comma-separated
// SRT variants into a duration with millisecond precision.
func parseTimestamp(raw string) (time.Duration, error) {
	normalized := strings.ReplaceAll(raw, ",", ".")
	parts := strings.Split(normalized, ":")

	var hours, minutes int
	var secondsPart string
	switch len(parts) {
	case 3:
		hours, _ = strconv.Atoi(parts[0])
		minutes, _ = strconv.Atoi(parts[1])
		secondsPart = parts[2]
	case 2:
		minutes, _ = strconv.Atoi(parts[0])
		secondsPart = parts[1]
	default:
		return 0, &timestampError{raw}
	}

	secFields := strings.SplitN(secondsPart, ".", 2)
	seconds, err := strconv.Atoi(secFields[0])
	if err != nil || seconds >= 60 || minutes >= 60 {
		return 0, &timestampError{raw}
	}

	milliseconds := 0
	if len(secFields) == 2 {
		msStr := secFields[1]
		if len(msStr) > 3 {
			msStr = msStr[:3]
		}
		for len(msStr) < 3 {
			msStr += "0"
		}
		milliseconds, err = strconv.Atoi(msStr)
		if err != nil {
			return 0, &timestampError{raw}
		}
	}

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(milliseconds)*time.Millisecond, nil
}

type timestampError struct {
	raw string
}

func (e *timestampError) Error() string {
	return "invalid timestamp " + strconv.Quote(e.raw)
}
