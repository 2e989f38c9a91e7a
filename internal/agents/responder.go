package agents

import (
	"embed"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"devduck/backend/internal/routing"
)

//go:embed payloads/*.md
var payloadFS embed.FS

// Responder produces a canned reply for a message.
type Responder interface {
	Name() string
	Respond(message string) string
}

// Capabilities describes a responder for status reporting.
type Capabilities struct {
	Specialties []string `json:"specialties"`
	Model       string   `json:"model"`
	Status      string   `json:"status"`
	Description string   `json:"description"`
}

// Describer is implemented by responders that can report capabilities.
type Describer interface {
	Capabilities() Capabilities
}

// ResponseRule pairs trigger keywords with a literal payload.
type ResponseRule struct {
	Keywords []string
	Payload  string
}

// TableResponder answers from an ordered keyword table. The first rule with
// a keyword contained in the lower-cased message wins; otherwise the fallback
// renders a reply from the incoming message.
type TableResponder struct {
	name     string
	rules    []ResponseRule
	fallback func(message string) string
}

// NewTableResponder builds a responder over a copy of rules.
func NewTableResponder(name string, rules []ResponseRule, fallback func(message string) string) *TableResponder {
	copied := make([]ResponseRule, len(rules))
	for i, rule := range rules {
		keywords := make([]string, len(rule.Keywords))
		for j, kw := range rule.Keywords {
			keywords[j] = strings.ToLower(kw)
		}
		copied[i] = ResponseRule{Keywords: keywords, Payload: rule.Payload}
	}
	return &TableResponder{name: name, rules: copied, fallback: fallback}
}

// Name returns the display name of the responder.
func (r *TableResponder) Name() string {
	return r.name
}

// Respond selects the payload for message. A failure while producing the
// payload is converted into an apology.
func (r *TableResponder) Respond(message string) (reply string) {
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("%v", rec)
			logrus.WithError(err).WithField("agent", r.name).Error("responder error")
			reply = Apology(err)
		}
	}()

	lower := strings.ToLower(message)
	for _, rule := range r.rules {
		if _, ok := routing.FirstMatch(lower, rule.Keywords); ok {
			return rule.Payload
		}
	}
	return r.fallback(message)
}

// Apology is the user-facing text for an internal processing error.
func Apology(err error) string {
	return fmt.Sprintf("I apologize, but I encountered an error: %v. Please try again.", err)
}

func mustPayload(name string) string {
	data, err := payloadFS.ReadFile("payloads/" + name)
	if err != nil {
		panic(fmt.Sprintf("missing payload %s: %v", name, err))
	}
	return string(data)
}
