package tutor

import (
	"regexp"
	"strings"
)

// AnswerReminder is appended to model replies that appear to hand over a
// final answer.
const AnswerReminder = "Remember: the goal is for you to understand each step. Try working through the problem on your own before checking a final result, and tell me where you get stuck!"

var answerLeakPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bthe\s+(?:final\s+|correct\s+)?answer\s+is\b`),
	// A line that is nothing but "x = 4".
	regexp.MustCompile(`(?m)^\s*(?:\*\*)?[A-Za-z]\s*=\s*-?\d+(?:\.\d+)?(?:\*\*)?\s*[.!]?\s*$`),
}

// leaksAnswer reports whether text looks like it states a direct answer.
func leaksAnswer(text string) bool {
	for _, re := range answerLeakPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// withAnswerReminder appends AnswerReminder when text leaks an answer.
func withAnswerReminder(text string) string {
	if !leaksAnswer(text) {
		return text
	}
	return strings.TrimRight(text, " \n") + "\n\n" + AnswerReminder
}
