package chat

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Intent is the classified purpose of a chat message
type Intent string

const (
	IntentCertification Intent = "certification_guidance"
	IntentExamQuestion  Intent = "exam_question"
	IntentConcept       Intent = "concept_explanation"
	IntentPricing       Intent = "pricing_enrollment"
	IntentEscalation    Intent = "escalation"
	IntentSupport       Intent = "support"
	IntentGeneral       Intent = "general_inquiry"
)

// IsRefusal reports whether the intent must never reach the AI provider
func (i Intent) IsRefusal() bool { return i == IntentExamQuestion }

// IsLead reports whether the intent is worth recording as a sales lead
func (i Intent) IsLead() bool { return i == IntentPricing || i == IntentEscalation }

type intentRule struct {
	intent   Intent
	keywords []string
	// patterns match where a bare substring would also hit ordinary wording
	patterns []*regexp.Regexp
}

func (r *intentRule) matches(msg string) bool {
	for _, kw := range r.keywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	for _, p := range r.patterns {
		if p.MatchString(msg) {
			return true
		}
	}
	return false
}

var (
	// "option b", "option c:" as an answer choice, not "option available"
	answerOption = regexp.MustCompile(`\boption [a-d](?:$|[).:,?!])`)
	// two or more lettered choices such as "a) vpc b) subnet"
	letteredChoices = regexp.MustCompile(`(?:^|[\s(])[a-d]\)\s.*(?:^|[\s(])[b-e]\)`)
)

// Evaluated in order; the first rule with a matching keyword or pattern wins. The
// certification rule must not contain a bare "exam" so exam-answer
// requests fall through to the refusal rule.
var intentRules = []intentRule{
	{IntentCertification, []string{
		"certification", "certified", "certificate", "learning path", "roadmap",
		"career path", "which cert", "what cert", "az-900", "az-104", "az-204",
		"az-305", "ai-900", "dp-900", "aws certified", "saa-c03", "ccna", "comptia",
		"security+", "pmp", "itil", "ckad", "exam prep", "prepare for the exam",
	}, nil},
	{IntentExamQuestion, []string{
		"correct answer", "right answer", "answer key", "answers to", "answer for this",
		"exam question", "exam mcq", "mcq", "multiple choice", "braindump", "dumps",
		"solve this question", "quiz answer", "cheat on", "cheat in the exam",
		"cheat in my exam", "help me cheat", "cheating",
	}, []*regexp.Regexp{answerOption, letteredChoices}},
	{IntentConcept, []string{
		"what is", "what are", "explain", "how does", "how do", "difference between",
		"define", "definition", "meaning of", "concept", "overview of",
	}, nil},
	{IntentPricing, []string{
		"price", "pricing", "cost", "fees", "tuition", "how much", "discount", "offer", "enroll",
		"enrol", "register", "registration", "sign up", "signup", "payment",
		"installment", "budget", "quote",
	}, nil},
	{IntentEscalation, []string{
		"speak to", "talk to", "human", "real person", "representative", "agent",
		"call me", "callback", "call back", "complaint", "manager", "contact someone",
	}, nil},
	{IntentSupport, []string{
		"help", "problem", "issue", "error", "login", "log in", "password", "can't",
		"cannot", "not working", "access", "refund", "reschedule", "cancel",
	}, nil},
}

var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalize lower-cases msg, strips diacritics and collapses whitespace
func normalize(msg string) string {
	folded, _, err := transform.String(foldDiacritics, msg)
	if err != nil {
		folded = msg
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// Classify maps a free-text message to an intent by keyword matching in
// priority order, falling back to IntentGeneral.
func Classify(message string) Intent {
	msg := normalize(message)
	if msg == "" {
		return IntentGeneral
	}
	for i := range intentRules {
		if intentRules[i].matches(msg) {
			return intentRules[i].intent
		}
	}
	return IntentGeneral
}

var greetingWords = map[string]bool{
	"hi": true, "hello": true, "hey": true, "hiya": true, "howdy": true, "greetings": true,
	"yo": true, "hola": true, "bonjour": true, "salut": true, "namaste": true, "salam": true,
	"good": true, "morning": true, "afternoon": true, "evening": true,
	"start": true, "menu": true,
}

// IsGreeting reports whether message is a first-contact signal: empty, shorter
// than three characters, or up to three words led by a greeting word.
func IsGreeting(message string) bool {
	msg := normalize(message)
	if len([]rune(msg)) < 3 {
		return true
	}

	words := strings.FieldsFunc(msg, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if len(words) == 0 {
		return true
	}
	if len(words) > 3 {
		return false
	}
	first := words[0]
	if first == "good" {
		return len(words) > 1 && (words[1] == "morning" || words[1] == "afternoon" || words[1] == "evening")
	}
	return greetingWords[first]
}
