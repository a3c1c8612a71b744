package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUniformedText(t *testing.T) {
	text := " 2024/02/19   “quoted”\n–dash \U0001F4DDdone "
	assert.Equal(t, `2024/02/19 "quoted" -dash done`, UniformedText(text))
}

func TestStripDatePrefixCurrentYear(t *testing.T) {
	now := time.Date(2024, time.May, 2, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, " message", stripDatePrefixAt("02.05.2024: message", now))
	assert.Equal(t, "no stamp here", stripDatePrefixAt("no stamp here", now))
}

func TestStripDatePrefixJanuaryFallsBackOneYear(t *testing.T) {
	january := time.Date(2025, time.January, 3, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, " written in december", stripDatePrefixAt("28.12.2024: written in december", january))
}

func TestApproximateComparison(t *testing.T) {
	assert.True(t, ApproximateComparison("", "anything"))
	assert.True(t, ApproximateComparison("same text", "same text"))
	assert.True(t, ApproximateComparison("part of it", "this is part of it and more"))
	assert.False(t, ApproximateComparison(
		"completely different content nothing shared at all here",
		"the haystack talks about other things entirely today"))
}

func TestApproximateComparisonSurvivesFormattingNoise(t *testing.T) {
	year := time.Now().Year()
	needle := fmt.Sprintf("19.02.%d: Analysis started, waiting for logs from the test bench", year)
	haystack := " \U0001F4C6 \t 2024/02/19\n         \U0001F4DD \t Analysis  started, waiting for\tlogs from the test bench\n\n"
	assert.True(t, ApproximateComparison(needle, haystack))
}

func TestRemoveDatetimeFromName(t *testing.T) {
	assert.Equal(t, "report.pdf", RemoveDatetimeFromName("report(2024.01.23@11.10).pdf"))
	assert.Equal(t, "report.pdf", RemoveDatetimeFromName(RemoveDatetimeFromName("report(2024.01.23@11.10).pdf")))
	assert.Equal(t, "plain-name.txt", RemoveDatetimeFromName("plain-name.txt"))
}

func TestNameWithDate(t *testing.T) {
	assert.Equal(t,
		"report(2024.01.23@11.10).pdf",
		NameWithDate("report.pdf", "2024-01-23T11:10:05.000+0100"))
	assert.Equal(t,
		"noext(2024.01.23@11.10)",
		NameWithDate("noext", "2024-01-23T11:10:05.000+0100"))
}

func TestNameWithDateRoundTrip(t *testing.T) {
	dated := NameWithDate("trace.log", "2024-01-23T11:10:05.000+0100")
	assert.Equal(t, "trace.log", RemoveDatetimeFromName(dated))
}

func TestBuildAutoComment(t *testing.T) {
	plain := BuildAutoComment("hello", "")
	assert.True(t, strings.HasPrefix(plain, AutoCommentLine))
	assert.True(t, strings.HasSuffix(plain, "hello"))

	sourced := BuildAutoComment("hello", "Cariad Devstack Jira")
	assert.Contains(t, sourced, "(from Cariad Devstack Jira)")
	assert.True(t, strings.HasSuffix(sourced, "hello"))
}

func TestSupplierResponsePrefix(t *testing.T) {
	stamped := SupplierResponsePrefix("done")
	assert.True(t, strings.HasSuffix(stamped, ": done"))
	assert.True(t, strings.HasPrefix(stamped, time.Now().Format("02.01.2006")))
}

func TestLastDaysStamps(t *testing.T) {
	now := time.Date(2024, time.March, 2, 12, 0, 0, 0, time.UTC)
	assert.Equal(t,
		[]string{"2024/03/02", "2024/03/01", "2024/02/29"},
		LastDaysStamps(3, now))
}
