package stt

import (
	"regexp"
	"strings"
)

// blankAudioToken is what whisper.cpp emits for segments it considers
// to contain no speech.
const blankAudioToken = "[BLANK_AUDIO]"

var (
	inlineBlankToken = regexp.MustCompile(`(?i)\[blank_audio\]`)
	runsOfSpace      = regexp.MustCompile(`\s+`)
)

// Clean strips decoder noise tokens from raw engine output and
// collapses the whitespace left behind. A transcript that consists of
// nothing but noise tokens comes back empty.
func Clean(text string) string {
	t := strings.TrimSpace(text)
	if t == "" || strings.EqualFold(t, blankAudioToken) {
		return ""
	}

	t = inlineBlankToken.ReplaceAllString(t, " ")
	t = runsOfSpace.ReplaceAllString(t, " ")

	return strings.TrimSpace(t)
}
