package agents

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"devduck/backend/internal/routing"
)

// CoordinatorName is the display name of the routing entry point.
const CoordinatorName = "DevDuck Coordinator"

const coordinationErrorReasoning = "Error in coordination"

// Outcome is the coordinator's answer for one message.
type Outcome struct {
	Response       string
	Reasoning      string
	Responder      string
	Classification routing.Result
	Failed         bool
}

// Coordinator classifies messages and forwards them to the labeled responder.
type Coordinator struct {
	classifier *routing.Classifier
	local      Responder
	cerebras   Responder
}

// NewCoordinator wires a classifier to the two responders.
func NewCoordinator(classifier *routing.Classifier, local, cerebras Responder) *Coordinator {
	return &Coordinator{classifier: classifier, local: local, cerebras: cerebras}
}

// Process routes message and extends the classifier's justification with the
// reason for the chosen responder. Failures are returned as an apology.
func (c *Coordinator) Process(message string) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("%v", rec)
			logrus.WithError(err).Error("devduck coordinator error")
			out = Outcome{
				Response:       Apology(err),
				Reasoning:      coordinationErrorReasoning,
				Classification: out.Classification,
				Failed:         true,
			}
		}
	}()

	out.Classification = c.classifier.Classify(message)
	reasoning := out.Classification.Justification

	var responder Responder
	switch out.Classification.Label {
	case routing.LabelLocal:
		responder = c.local
		reasoning += ". Local agent chosen for Node.js development tasks."
	case routing.LabelCerebras:
		responder = c.cerebras
		reasoning += ". Cerebras agent chosen for complex analysis."
	default:
		responder = c.local
		reasoning += ". Fallback to local agent."
	}

	out.Response = responder.Respond(message)
	out.Responder = responder.Name()
	out.Reasoning = reasoning
	return out
}
