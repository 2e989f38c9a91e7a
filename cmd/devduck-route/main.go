package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"devduck/backend/internal/agents"
	"devduck/backend/internal/routing"
)

// routeOutput is one JSON line written per message.
type routeOutput struct {
	Message        string          `json:"message"`
	Classification *routing.Result `json:"classification,omitempty"`
	Response       string          `json:"response,omitempty"`
	AgentUsed      string          `json:"agent_used,omitempty"`
	Reasoning      string          `json:"reasoning,omitempty"`
}

func main() {
	var (
		agent        = flag.String("agent", agents.AgentDevDuck, "Agent to ask: devduck, local or cerebras")
		rulesPath    = flag.String("rules", "", "Routing rules YAML/JSON (env DEVDUCK_ROUTING_RULES)")
		classifyOnly = flag.Bool("classify-only", false, "Print the classification without a response")
		verbose      = flag.Bool("v", false, "Log routing decisions to stderr")
		messages     multiFlag
	)
	flag.Var(&messages, "m", "Message to route (repeatable)")
	flag.Parse()

	logrus.SetOutput(os.Stderr)
	if !*verbose {
		logrus.SetLevel(logrus.WarnLevel)
	}

	if rest := strings.TrimSpace(strings.Join(flag.Args(), " ")); rest != "" {
		messages = append(messages, rest)
	}
	if len(messages) == 0 {
		fmt.Fprintln(os.Stderr, "usage: devduck-route [flags] [-m message]... [message]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	path := strings.TrimSpace(*rulesPath)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("DEVDUCK_ROUTING_RULES"))
	}
	rules, err := loadRules(path)
	if err != nil {
		logrus.Fatalf("load routing rules: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)

	if *classifyOnly {
		classifier, err := routing.NewClassifier(rules)
		if err != nil {
			logrus.Fatalf("routing classifier: %v", err)
		}
		for _, msg := range messages {
			result := classifier.Classify(msg)
			if err := enc.Encode(routeOutput{Message: msg, Classification: &result}); err != nil {
				logrus.Fatalf("write output: %v", err)
			}
		}
		return
	}

	service, err := agents.NewService(agents.Config{
		Rules:          rules,
		LocalModel:     os.Getenv("LOCAL_MODEL_NAME"),
		CerebrasModel:  os.Getenv("CEREBRAS_MODEL_NAME"),
		CerebrasAPIKey: os.Getenv("CEREBRAS_API_KEY"),
	})
	if err != nil {
		logrus.Fatalf("agent service: %v", err)
	}

	for _, msg := range messages {
		reply, err := service.Dispatch(*agent, msg)
		if err != nil {
			logrus.Fatalf("route %q: %v", msg, err)
		}
		out := routeOutput{
			Message:        msg,
			Classification: reply.Classification,
			Response:       reply.Response,
			AgentUsed:      reply.AgentUsed,
			Reasoning:      reply.Reasoning,
		}
		if err := enc.Encode(out); err != nil {
			logrus.Fatalf("write output: %v", err)
		}
	}
}

func loadRules(path string) (routing.RuleSet, error) {
	if path == "" {
		return routing.DefaultRules()
	}
	return routing.LoadRules(path)
}

type multiFlag []string

func (m *multiFlag) String() string {
	return strings.Join(*m, ",")
}

func (m *multiFlag) Set(value string) error {
	*m = append(*m, value)
	return nil
}
