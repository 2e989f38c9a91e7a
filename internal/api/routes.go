package api

import (
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"devduck/backend/internal/agents"
	"devduck/backend/internal/store"
)

//go:embed static/index.html
var indexHTML []byte

const maxDecisionLimit = 500

var errDecisionLogDisabled = errors.New("decision log disabled: set DEVDUCK_DB_PATH")

// Config defines server dependencies.
type Config struct {
	Agents         agents.Config
	DBPath         string
	SilentDB       bool
	AllowedOrigins []string
}

// Server wires HTTP handlers with the agent service and the decision log.
type Server struct {
	service        *agents.Service
	db             *store.Database
	allowedOrigins []string
	notifier       *DecisionNotifier
}

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	service, err := agents.NewService(cfg.Agents)
	if err != nil {
		return nil, fmt.Errorf("agent service: %w", err)
	}

	var db *store.Database
	if strings.TrimSpace(cfg.DBPath) == "" {
		logrus.Info("decision log disabled - no database path configured")
	} else {
		db, err = store.Open(cfg.DBPath, cfg.SilentDB)
		if err != nil {
			return nil, err
		}
		logrus.WithField("path", cfg.DBPath).Info("decision log enabled")
	}

	return NewServerWithService(service, db, cfg.AllowedOrigins), nil
}

// NewServerWithService wires prebuilt dependencies. db may be nil.
func NewServerWithService(service *agents.Service, db *store.Database, allowedOrigins []string) *Server {
	return &Server{
		service:        service,
		db:             db,
		allowedOrigins: allowedOrigins,
		notifier:       NewDecisionNotifier(),
	}
}

// Close releases the decision log.
func (s *Server) Close() error {
	return s.db.Close()
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/", s.handleIndex)
	r.GET("/dev-ui/", s.handleIndex)
	r.GET("/health", s.handleHealth)
	r.GET("/status", s.handleStatus)
	r.GET("/agents", s.handleAgents)
	r.POST("/chat", s.handleChat)

	api := r.Group("/api")
	{
		api.GET("/decisions", s.handleDecisions)
		api.GET("/decisions/stats", s.handleDecisionStats)
		api.GET("/decisions/stream", s.handleDecisionStream)
	}

	return r, nil
}

func (s *Server) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "agents": agents.AgentNames})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.service.Status())
}

func (s *Server) handleAgents(c *gin.Context) {
	c.JSON(http.StatusOK, s.service.Capabilities())
}

func (s *Server) handleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}

	start := time.Now()
	reply, err := s.service.Dispatch(req.Agent, *req.Message)
	if err != nil {
		if errors.Is(err, agents.ErrUnknownAgent) {
			s.renderError(c, http.StatusBadRequest, agents.ErrUnknownAgent)
			return
		}
		logrus.WithError(err).WithField("agent", req.Agent).Error("error processing request")
		s.renderError(c, http.StatusInternalServerError, fmt.Errorf("Agent error: %v", err))
		return
	}

	s.recordDecision(req, reply, time.Since(start))

	resp := ChatResponse{Response: reply.Response, AgentUsed: reply.AgentUsed}
	if reply.Reasoning != "" {
		reasoning := reply.Reasoning
		resp.Reasoning = &reasoning
	}
	c.JSON(http.StatusOK, resp)
}

// recordDecision broadcasts the decision and appends it to the log when
// enabled. Failures here never affect the reply.
func (s *Server) recordDecision(req ChatRequest, reply agents.Reply, elapsed time.Duration) {
	requested := req.Agent
	if requested == "" {
		requested = agents.AgentDevDuck
	}
	decision := store.Decision{
		RequestID:        uuid.NewString(),
		RequestedAgent:   requested,
		AgentUsed:        reply.AgentUsed,
		Message:          *req.Message,
		Reasoning:        reply.Reasoning,
		ResponseLength:   len(reply.Response),
		ProcessingTimeMs: elapsed.Milliseconds(),
		Failed:           reply.Failed,
	}
	if cl := reply.Classification; cl != nil {
		decision.Label = string(cl.Label)
		decision.Rule = cl.Rule
		decision.Keyword = cl.Keyword
	}

	s.notifier.Broadcast(DecisionEvent{
		Type:             "decision",
		RequestID:        decision.RequestID,
		RequestedAgent:   decision.RequestedAgent,
		AgentUsed:        decision.AgentUsed,
		Label:            decision.Label,
		Rule:             decision.Rule,
		Reasoning:        decision.Reasoning,
		ProcessingTimeMs: decision.ProcessingTimeMs,
		Failed:           decision.Failed,
	})

	if s.db == nil {
		return
	}
	if err := s.db.SaveDecision(&decision); err != nil {
		logrus.WithError(err).WithField("request_id", decision.RequestID).Warn("save decision")
	}
}

func (s *Server) handleDecisions(c *gin.Context) {
	if s.db == nil {
		s.renderError(c, http.StatusServiceUnavailable, errDecisionLogDisabled)
		return
	}
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	decisions, err := s.db.RecentDecisions(limit)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	total, err := s.db.CountDecisions()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	items := make([]DecisionDTO, 0, len(decisions))
	for _, d := range decisions {
		items = append(items, DecisionFromModel(d))
	}
	c.JSON(http.StatusOK, DecisionsResponse{Items: items, Total: total})
}

func (s *Server) handleDecisionStats(c *gin.Context) {
	if s.db == nil {
		s.renderError(c, http.StatusServiceUnavailable, errDecisionLogDisabled)
		return
	}
	stats, err := s.db.DecisionStats()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleDecisionStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	client := s.notifier.Register(conn)
	logrus.WithField("remote", conn.RemoteAddr().String()).Info("decision websocket connected")
	defer s.notifier.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("remote", conn.RemoteAddr().String()).Info("decision websocket closed")
			} else {
				logrus.WithError(err).Warn("decision websocket unexpected close")
			}
			break
		}
	}
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseLimit(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(value)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("invalid limit: %s", value)
	}
	if limit > maxDecisionLimit {
		limit = maxDecisionLimit
	}
	return limit, nil
}
