package chat

import (
	"context"
	"strings"
	"time"

	"github.com/R3E-Network/agent_studio/internal/app/metrics"
	svcerrors "github.com/R3E-Network/agent_studio/internal/errors"
	"github.com/R3E-Network/agent_studio/pkg/logger"
)

// StubResponse is returned until model streaming is implemented.
const StubResponse = "UNDER DEVELOPMENT"

// DefaultDelay is the stub's simulated latency.
const DefaultDelay = time.Second

// Request is a chat message addressed to an agent.
type Request struct {
	AgentID string `json:"agentId"`
	Message string `json:"message"`
}

// Service answers chat requests.
type Service struct {
	delay time.Duration
	log   *logger.Logger
}

// New constructs a chat service. A negative delay is treated as zero.
func New(delay time.Duration, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("chat")
	}
	if delay < 0 {
		delay = 0
	}
	return &Service{delay: delay, log: log}
}

// Delay is the configured stub latency.
func (s *Service) Delay() time.Duration { return s.delay }

// Stream waits the configured delay and returns the stub text. The agent id
// and message are not inspected. A cancelled context ends the wait early.
func (s *Service) Stream(ctx context.Context, userID string, req Request) (out string, err error) {
	start := time.Now()
	defer func() { metrics.RecordChatRequest(time.Since(start), err) }()

	s.log.WithField("user_id", userID).
		WithField("agent_id", strings.TrimSpace(req.AgentID)).
		WithField("message_length", len(req.Message)).
		Debug("chat request")

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", svcerrors.Unavailable("chat request cancelled", ctx.Err())
		case <-timer.C:
		}
	}
	return StubResponse, nil
}
