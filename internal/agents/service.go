package agents

import (
	"errors"
	"fmt"

	"devduck/backend/internal/routing"
)

// Agent identifiers accepted by Dispatch.
const (
	AgentDevDuck  = "devduck"
	AgentLocal    = "local"
	AgentCerebras = "cerebras"
)

const (
	statusActive   = "active"
	statusInactive = "inactive"
)

// ErrUnknownAgent reports an agent identifier outside AgentNames.
var ErrUnknownAgent = errors.New("invalid agent specified")

// AgentNames lists the identifiers accepted by Dispatch.
var AgentNames = []string{AgentDevDuck, AgentLocal, AgentCerebras}

// Config holds the settings needed to assemble a Service.
type Config struct {
	Rules          routing.RuleSet
	LocalModel     string
	CerebrasModel  string
	CerebrasAPIKey string
}

// Reply is the uniform answer of every entry point.
type Reply struct {
	Response  string
	AgentUsed string
	Reasoning string

	Classification *routing.Result
	Failed         bool
}

// Status mirrors the per-agent availability report.
type Status struct {
	Coordinator   string `json:"coordinator"`
	LocalAgent    string `json:"local_agent"`
	CerebrasAgent string `json:"cerebras_agent"`
}

// Service exposes the coordinator and both responders behind one API.
type Service struct {
	coordinator *Coordinator
	local       Responder
	cerebras    Responder
}

// NewService builds the classifier and responders from cfg.
func NewService(cfg Config) (*Service, error) {
	classifier, err := routing.NewClassifier(cfg.Rules)
	if err != nil {
		return nil, fmt.Errorf("routing classifier: %w", err)
	}
	local := NewLocalAgent(cfg.LocalModel)
	cerebras := NewCerebrasAgent(cfg.CerebrasModel, cfg.CerebrasAPIKey)
	return NewServiceWithResponders(classifier, local, cerebras), nil
}

// NewServiceWithResponders assembles a Service from prebuilt parts. A nil
// responder makes its direct entry point fail.
func NewServiceWithResponders(classifier *routing.Classifier, local, cerebras Responder) *Service {
	return &Service{
		coordinator: NewCoordinator(classifier, local, cerebras),
		local:       local,
		cerebras:    cerebras,
	}
}

// Dispatch selects an entry point by agent identifier. An empty identifier
// means automatic routing.
func (s *Service) Dispatch(agent, message string) (reply Reply, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reply = Reply{}
			err = fmt.Errorf("%v", rec)
		}
	}()

	switch agent {
	case "", AgentDevDuck:
		return s.Route(message)
	case AgentLocal:
		return s.Local(message)
	case AgentCerebras:
		return s.Cerebras(message)
	default:
		return Reply{}, fmt.Errorf("%w: %q", ErrUnknownAgent, agent)
	}
}

// Route classifies message and answers through the chosen responder.
func (s *Service) Route(message string) (Reply, error) {
	if s.coordinator == nil || s.coordinator.classifier == nil {
		return Reply{}, errors.New("coordinator unavailable")
	}
	out := s.coordinator.Process(message)
	classification := out.Classification
	return Reply{
		Response:       out.Response,
		AgentUsed:      CoordinatorName,
		Reasoning:      out.Reasoning,
		Classification: &classification,
		Failed:         out.Failed,
	}, nil
}

// Local answers with the primary responder, bypassing classification.
func (s *Service) Local(message string) (Reply, error) {
	return direct(s.local, AgentLocal, message)
}

// Cerebras answers with the secondary responder, bypassing classification.
func (s *Service) Cerebras(message string) (Reply, error) {
	return direct(s.cerebras, AgentCerebras, message)
}

func direct(responder Responder, agent, message string) (Reply, error) {
	if responder == nil {
		return Reply{}, fmt.Errorf("%s agent unavailable", agent)
	}
	return Reply{Response: responder.Respond(message), AgentUsed: responder.Name()}, nil
}

// Status reports which agents are active.
func (s *Service) Status() Status {
	return Status{
		Coordinator:   statusActive,
		LocalAgent:    responderStatus(s.local),
		CerebrasAgent: responderStatus(s.cerebras),
	}
}

// Capabilities lists the describable responders keyed by agent identifier.
func (s *Service) Capabilities() map[string]Capabilities {
	out := make(map[string]Capabilities, 2)
	if d, ok := s.local.(Describer); ok {
		out[AgentLocal] = d.Capabilities()
	}
	if d, ok := s.cerebras.(Describer); ok {
		out[AgentCerebras] = d.Capabilities()
	}
	return out
}

func responderStatus(r Responder) string {
	if r == nil {
		return statusInactive
	}
	if d, ok := r.(Describer); ok {
		return d.Capabilities().Status
	}
	return statusActive
}
