package agent

import (
	"strings"

	"ai-context-engine/pkg/llm"
)

const (
	// historyFloor is the minimum number of chat turns kept regardless of
	// budget. Recency beats completeness once the budget is blown.
	historyFloor = 6

	// charsPerToken is the cheap token estimate used for budgeting.
	charsPerToken = 4
)

// Injection sentinels. Turns whose content starts with one of these are
// engine-supplied context, not conversation, and survive truncation whole.
const (
	MarkerContext = "[CONTEXT]"
	MarkerSummary = "[SUMMARY]"
)

var injectionMarkers = []string{MarkerContext, MarkerSummary}

// Truncate fits a turn list into a token budget. The leading injection
// prefix is always kept in full; chat turns are dropped oldest-first until
// the rest fits, but never below the last 6.
func Truncate(turns []llm.Message, maxTokens int) []llm.Message {
	if len(turns) == 0 || maxTokens <= 0 {
		return turns
	}

	split := 0
	for split < len(turns) && isInjection(turns[split]) {
		split++
	}
	injections := turns[:split]
	chat := turns[split:]

	budget := maxTokens * charsPerToken
	for _, m := range injections {
		budget -= len(m.Content)
	}

	for len(chat) > historyFloor && totalChars(chat) > budget {
		chat = chat[1:]
	}

	out := make([]llm.Message, 0, len(injections)+len(chat))
	out = append(out, injections...)
	out = append(out, chat...)
	return out
}

func isInjection(m llm.Message) bool {
	for _, marker := range injectionMarkers {
		if strings.HasPrefix(m.Content, marker) {
			return true
		}
	}
	return false
}

func totalChars(turns []llm.Message) int {
	total := 0
	for _, m := range turns {
		total += len(m.Content)
	}
	return total
}
