package agents

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// CerebrasAgentName is the display name of the secondary responder.
const CerebrasAgentName = "Cerebras Agent"

// DefaultCerebrasModel is reported when CEREBRAS_MODEL_NAME is unset.
const DefaultCerebrasModel = "llama3.1-8b"

var (
	cerebrasArchitecture   = mustPayload("cerebras_architecture.md")
	cerebrasOptimization   = mustPayload("cerebras_optimization.md")
	cerebrasDesignPatterns = mustPayload("cerebras_design_patterns.md")
	cerebrasReview         = mustPayload("cerebras_review.md")
)

const cerebrasClarification = "Analyzing your request: '%s'\n\n" +
	"As the Cerebras analysis agent, I focus on complex problems that benefit from deeper reasoning. " +
	"Could you share more detail about the system and the outcome you need? \n\n" +
	"For example:\n" +
	"• 'Review the architecture of my Express app'\n" +
	"• 'How do I optimize a slow database query?'\n" +
	"• 'Which design pattern fits a plugin system?'\n" +
	"• 'Help me debug a memory leak'"

// CerebrasAgent is the complex-analysis responder. It reports active only
// when an API key is configured; replies never depend on it.
type CerebrasAgent struct {
	*TableResponder
	model      string
	configured bool
}

// NewCerebrasAgent constructs the analysis responder.
func NewCerebrasAgent(model, apiKey string) *CerebrasAgent {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultCerebrasModel
	}
	rules := []ResponseRule{
		{Keywords: []string{"architecture", "microservice"}, Payload: cerebrasArchitecture},
		{Keywords: []string{"optimization", "optimize", "performance"}, Payload: cerebrasOptimization},
		{Keywords: []string{"design pattern"}, Payload: cerebrasDesignPatterns},
		{Keywords: []string{"debug", "review", "analyze"}, Payload: cerebrasReview},
	}
	agent := &CerebrasAgent{
		TableResponder: NewTableResponder(CerebrasAgentName, rules, func(message string) string {
			return fmt.Sprintf(cerebrasClarification, message)
		}),
		model:      model,
		configured: strings.TrimSpace(apiKey) != "",
	}
	logrus.WithFields(logrus.Fields{
		"model":  model,
		"status": agent.status(),
	}).Info("cerebras agent initialized")
	return agent
}

// Capabilities reports what the Cerebras agent covers.
func (a *CerebrasAgent) Capabilities() Capabilities {
	return Capabilities{
		Specialties: []string{"Architecture", "Performance", "Design Patterns", "Code Review", "Debugging"},
		Model:       a.model,
		Status:      a.status(),
		Description: "Advanced analysis and complex problem solving",
	}
}

func (a *CerebrasAgent) status() string {
	if a.configured {
		return statusActive
	}
	return statusInactive
}
