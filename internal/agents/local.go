package agents

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// LocalAgentName is the display name of the primary responder.
const LocalAgentName = "Local Node.js Agent"

// DefaultLocalModel is reported when LOCAL_MODEL_NAME is unset.
const DefaultLocalModel = "llama-3.2-3b-instruct"

var (
	localGreeting    = mustPayload("local_greeting.md")
	localExpress     = mustPayload("local_express.md")
	localPackageJSON = mustPayload("local_package_json.md")
	localAPI         = mustPayload("local_api.md")
	localTesting     = mustPayload("local_testing.md")
)

const localClarification = "I understand you're asking about: '%s'\n\n" +
	"As your local Node.js agent, I'm here to help with development tasks. " +
	"Could you be more specific about what you'd like to accomplish? \n\n" +
	"For example:\n" +
	"• 'Create an Express.js server'\n" +
	"• 'Show me a package.json example'\n" +
	"• 'Help me build a REST API'\n" +
	"• 'How do I write tests in Node.js?'"

// LocalAgent is the Node.js development responder.
type LocalAgent struct {
	*TableResponder
	model string
}

// NewLocalAgent constructs the local responder reporting the given model.
func NewLocalAgent(model string) *LocalAgent {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultLocalModel
	}
	rules := []ResponseRule{
		{Keywords: []string{"hello", "hi"}, Payload: localGreeting},
		{Keywords: []string{"express"}, Payload: localExpress},
		{Keywords: []string{"package.json"}, Payload: localPackageJSON},
		{Keywords: []string{"api"}, Payload: localAPI},
		{Keywords: []string{"test"}, Payload: localTesting},
	}
	logrus.WithField("model", model).Info("local Node.js agent initialized")
	return &LocalAgent{
		TableResponder: NewTableResponder(LocalAgentName, rules, func(message string) string {
			return fmt.Sprintf(localClarification, message)
		}),
		model: model,
	}
}

// Model returns the configured model name.
func (a *LocalAgent) Model() string {
	return a.model
}

// Capabilities reports what the local agent covers.
func (a *LocalAgent) Capabilities() Capabilities {
	return Capabilities{
		Specialties: []string{"Node.js", "Express.js", "JavaScript", "npm", "Testing"},
		Model:       a.model,
		Status:      statusActive,
		Description: "Local Node.js development expert",
	}
}
