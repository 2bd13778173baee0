package chat

import (
	"fmt"
	"strings"
)

// goal is the conversational aim attached to an intent: a short label
// returned to clients and an instruction appended to the model prompt.
type goal struct {
	label       string
	instruction string
}

var goals = map[Intent]goal{
	IntentCertification: {
		label: "guide_learning_path",
		instruction: "Recommend a certification or learning path from the catalog that fits the student's " +
			"experience. Name the matching courses and the order to take them in.",
	},
	IntentExamQuestion: {
		label: "refuse_exam_help",
	},
	IntentConcept: {
		label: "explain_concept",
		instruction: "Explain the concept briefly in plain language, then point to the catalog course " +
			"that covers it in depth.",
	},
	IntentPricing: {
		label: "convert_to_enrollment",
		instruction: "Answer with prices, durations and upcoming dates from the catalog only. Never invent " +
			"a price. Invite the student to register or to leave an email for a quote.",
	},
	IntentEscalation: {
		label: "handoff_to_human",
		instruction: "Acknowledge the request for a person, give the contact details below and ask for a " +
			"good time and channel to reach the student.",
	},
	IntentSupport: {
		label: "resolve_issue",
		instruction: "Help with the problem in a few steps. If it concerns an account, payment or " +
			"certificate record, direct the student to the contact details below.",
	},
	IntentGeneral: {
		label: "answer_inquiry",
		instruction: "Answer helpfully and concisely using the catalog. Suggest a relevant course when it fits.",
	},
}

// GoalLabel returns the goal label of intent
func GoalLabel(i Intent) string {
	if g, ok := goals[i]; ok {
		return g.label
	}
	return goals[IntentGeneral].label
}

func goalInstruction(i Intent) string {
	if g, ok := goals[i]; ok && g.instruction != "" {
		return g.instruction
	}
	return goals[IntentGeneral].instruction
}

// Contact is how a student reaches a person
type Contact struct {
	Email string
	Phone string
}

func (c Contact) line() string {
	var parts []string
	if c.Email != "" {
		parts = append(parts, "email "+c.Email)
	}
	if c.Phone != "" {
		parts = append(parts, "call "+c.Phone)
	}
	if len(parts) == 0 {
		return "use the contact form on our website"
	}
	return strings.Join(parts, " or ")
}

func refusalReply() string {
	return "I can't help with answers to exam or assessment questions. Certification exams test your own " +
		"knowledge, and sharing answers breaks the exam rules. I'm happy to explain the underlying concepts, " +
		"suggest study resources or recommend a preparation course instead."
}

func unavailableReply(c Contact) string {
	return fmt.Sprintf("Our assistant is not available right now. For course information, please %s and our "+
		"team will get back to you.", c.line())
}

func providerFailureReply(kind ErrorKind, c Contact) string {
	var lead string
	switch kind {
	case KindQuota:
		lead = "Our assistant is receiving a lot of questions at the moment. Please try again in a few minutes."
	case KindTimeout:
		lead = "The assistant took too long to answer. Please try again."
	case KindMalformed:
		lead = "I couldn't put together an answer this time. Please rephrase your question."
	default:
		lead = "Something went wrong while preparing an answer."
	}
	return fmt.Sprintf("%s If it's urgent, please %s.", lead, c.line())
}

// Welcome is the first-contact reply with suggested questions
type Welcome struct {
	Reply       string
	Suggestions []string
}

func welcome(orgName string) Welcome {
	if orgName == "" {
		orgName = "our training center"
	}
	return Welcome{
		Reply: fmt.Sprintf("Hello! I'm the course assistant for %s. I can help you pick a course, plan a "+
			"certification path or find upcoming sessions. What would you like to learn?", orgName),
		Suggestions: []string{
			"Which certification should I start with?",
			"What courses do you offer for beginners?",
			"How much does a course cost?",
			"When is the next training session?",
		},
	}
}
