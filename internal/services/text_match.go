package services

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// AutoCommentLine prefixes every comment this service posts on its own.
const AutoCommentLine = "\U0001F916 *[issue-sync]* automated comment \U0001F4DF\n"

var datetimeSuffixRe = regexp.MustCompile(`\(\d{4}\.\d{2}\.\d{2}@\d{1,2}\.\d{2}\)`)

var defaultGlyphs = []string{"\U0001F4C6", "\U0001F4DD"}

// StripDatePrefix removes a leading "DD.MM.YYYY:" stamp for the current
// year. Around the year boundary a January run also tries the previous
// year, comments written in late December still carry last year's stamp.
func StripDatePrefix(text string) string {
	return stripDatePrefixAt(text, time.Now())
}

func stripDatePrefixAt(text string, now time.Time) string {
	year := now.Year()
	parts := strings.SplitN(text, fmt.Sprintf(".%d:", year), 2)
	if len(parts) > 1 {
		return parts[1]
	}
	if now.Month() == time.January {
		year--
	}
	parts = strings.SplitN(text, fmt.Sprintf(".%d:", year), 2)
	return parts[len(parts)-1]
}

// UniformedText normalizes free text for comparison: trims, folds curly
// quotes and dashes to ASCII, flattens whitespace, drops decorative glyphs
// and strips a leading date stamp.
func UniformedText(text string, remove ...string) string {
	replacer := strings.NewReplacer(
		"’", "'",
		"‘", "'",
		"”", `"`,
		"“", `"`,
		"–", "-",
		"\t", " ",
		"\n", " ",
	)
	text = replacer.Replace(strings.TrimSpace(text))
	for strings.Contains(text, "  ") {
		text = strings.ReplaceAll(text, "  ", " ")
	}
	if len(remove) == 0 {
		remove = defaultGlyphs
	}
	for _, r := range remove {
		text = strings.ReplaceAll(text, r, "")
	}
	return StripDatePrefix(strings.TrimSpace(text))
}

// differencePart is the share of needle tokens that do not match the
// haystack token at the same position.
func differencePart(needle, haystack []string) float64 {
	if len(needle) == 0 {
		return 0
	}
	different := 0
	for i, word := range needle {
		if i >= len(haystack) || word != haystack[i] {
			different++
		}
	}
	return float64(different) / float64(len(needle))
}

// ApproximateComparison decides whether needle is already contained in
// haystack despite formatting noise. Containment after normalization wins
// outright; otherwise the needle is aligned at its first matching token in
// the haystack and considered equal below a 0.2 token difference ratio.
// The threshold was validated against real round-tripped comments, do not
// swap in an edit distance without revalidating it.
func ApproximateComparison(needle, haystack string) bool {
	needle = UniformedText(needle)
	haystack = UniformedText(haystack)

	if needle == "" {
		return true
	}
	if strings.Contains(haystack, needle) {
		return true
	}

	needleTokens := strings.Split(needle, " ")
	haystackTokens := strings.Split(haystack, " ")

	index := -1
	strIndex := 0
	for _, word := range needleTokens {
		for i, val := range haystackTokens {
			if val == word {
				index = i
				break
			}
			strIndex += len(val) + 1
		}
		if index != -1 {
			// drop prefixes like dates in the haystack
			haystackTokens = haystackTokens[index:]
			break
		}
	}

	if differencePart(needleTokens, haystackTokens) < 0.2 {
		return true
	}

	if strIndex < len(haystack) {
		trimmed := strings.Split(haystack[strIndex:], " ")
		if differencePart(needleTokens, trimmed) < 0.2 {
			return true
		}
	}
	return false
}

// RemoveDatetimeFromName strips the "(YYYY.MM.DD@HH.MM)" instrumentation
// suffix attachments pick up on transfer. Idempotent.
func RemoveDatetimeFromName(name string) string {
	return datetimeSuffixRe.ReplaceAllString(name, "")
}

// NameWithDate rebuilds the dated attachment name from the raw created
// timestamp, e.g. "report.pdf" + "2024-01-23T11:10:05.000+0100" gives
// "report(2024.01.23@11.10).pdf".
func NameWithDate(filename, created string) string {
	stamp := created
	if i := strings.LastIndex(stamp, ":"); i != -1 {
		stamp = stamp[:i]
	}
	stamp = strings.ReplaceAll(stamp, "T", "@")
	// ":" would be folded to "_" by Jira on upload
	stamp = strings.ReplaceAll(stamp, ":", ".")
	stamp = strings.ReplaceAll(stamp, "-", ".")

	name := filename
	suffix := ""
	if i := strings.LastIndex(filename, "."); i != -1 {
		name = filename[:i]
		suffix = filename[i:]
	}
	return fmt.Sprintf("%s(%s)%s", name, stamp, suffix)
}

// BuildAutoComment marks a comment as posted by the sync itself.
func BuildAutoComment(comment, source string) string {
	comment = AutoCommentLine + comment
	if source != "" {
		comment = strings.Replace(comment,
			" comment \U0001F4DF\n",
			fmt.Sprintf(" comment (from %s) \U0001F4DF\n", source), 1)
	}
	return comment
}

// SupplierResponsePrefix stamps a KPM bound message with today's date.
func SupplierResponsePrefix(message string) string {
	return fmt.Sprintf("%s: %s", time.Now().Format("02.01.2006"), message)
}

// LastDaysStamps lists the "YYYY/MM/DD" stamps of the last n days,
// today included.
func LastDaysStamps(n int, now time.Time) []string {
	stamps := make([]string, 0, n)
	for i := 0; i < n; i++ {
		stamps = append(stamps, now.AddDate(0, 0, -i).Format("2006/01/02"))
	}
	return stamps
}
