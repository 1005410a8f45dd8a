package trigger

import (
	"math/rand"
	"regexp"
	"strings"
)

// Path is the processing route chosen for an incoming message.
type Path string

const (
	// PathSkip: transport artifacts that deserve no reply at all.
	PathSkip Path = "skip"
	// PathCasual: social filler answered by a lightweight no-tool reply.
	PathCasual Path = "casual"
	// PathAgent: everything substantive runs the full engine.
	PathAgent Path = "agent"
)

// junkPatterns match messages produced by the messaging layer rather than
// the user: reaction notices, bare links, missed-call artifacts.
var junkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://\S+$`),
	regexp.MustCompile(`(?i)missed a call`),
	regexp.MustCompile(`(?i)didn't leave a message`),
	regexp.MustCompile(`(?i)^Liked\s+"`),
	regexp.MustCompile(`(?i)^Loved\s+"`),
	regexp.MustCompile(`(?i)^Laughed at\s+"`),
	regexp.MustCompile(`(?i)^Emphasised\s+"`),
	regexp.MustCompile(`(?i)^Emphasized\s+"`),
	regexp.MustCompile(`(?i)^Disliked\s+"`),
	regexp.MustCompile(`(?i)^Questioned\s+"`),
}

var casualWords = map[string]bool{
	"hey": true, "hi": true, "hello": true, "yo": true, "sup": true,
	"hiya": true, "g'day": true,
	"thanks": true, "thank you": true, "cheers": true, "ta": true, "thx": true,
	"nah": true, "nope": true, "no": true,
	"good morning": true, "good afternoon": true, "good evening": true,
	"good night": true,
	"gm": true, "gn": true, "morning": true, "night": true,
	"lol": true, "haha": true, "hahaha": true, "lmao": true,
	"nice": true, "cool": true, "great": true, "awesome": true,
	"bye": true, "cya": true, "see ya": true, "later": true, "ttyl": true,
	"how are you": true, "how's it going": true, "what's up": true,
	"whats up": true,
}

// neverCasual are short confirmations that look like filler but usually
// approve a held action. They must reach the agent.
var neverCasual = map[string]bool{
	"yes": true, "yeah": true, "yep": true, "yup": true, "sure": true,
	"ok": true, "okay": true, "k": true, "kk": true,
	"do it": true, "go ahead": true, "send": true, "send it": true,
	"go for it": true, "confirm": true,
}

// substanceWords make an otherwise tiny message substantive.
var substanceWords = map[string]bool{
	"meeting": true, "email": true, "note": true, "calendar": true,
	"schedule": true, "search": true, "find": true, "draft": true,
	"transcript": true, "summary": true, "send": true, "book": true,
	"create": true, "delete": true, "cancel": true, "remind": true,
	"update": true, "reschedule": true, "forward": true, "reply": true,
}

var ackFallbacks = []string{
	"One sec.",
	"Checking now.",
	"Let me look into that.",
	"On it.",
	"Looking into it.",
}

// Classify routes a message before any model runs. Order matters: junk
// first (no reply), then the never-casual override, then the casual
// shortcuts.
func Classify(text string) Path {
	if isJunk(text) {
		return PathSkip
	}
	if isCasual(text) {
		return PathCasual
	}
	return PathAgent
}

func isJunk(text string) bool {
	for _, p := range junkPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func isCasual(text string) bool {
	cleaned := strings.TrimSpace(strings.ToLower(text))
	cleaned = strings.TrimSpace(strings.TrimRight(cleaned, "!?."))

	if neverCasual[cleaned] {
		return false
	}
	if casualWords[cleaned] {
		return true
	}

	// Tiny messages default to casual unless they name something the
	// assistant can act on.
	words := strings.Fields(cleaned)
	if len(words) <= 2 && len(cleaned) <= 12 {
		for _, w := range words {
			if substanceWords[w] {
				return false
			}
		}
		return true
	}
	return false
}

// FallbackAck returns a canned acknowledgement for when the ack model is
// slow or down.
func FallbackAck() string {
	return ackFallbacks[rand.Intn(len(ackFallbacks))]
}
