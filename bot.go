package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Fallback replies. Callers cannot tell them from real replies.
const (
	botOfflineReply      = "The neural link with FormBot is offline right now. ⚡"
	botEmptyReply        = "I'm currently recalibrating my neural circuits. Try again in a nanosecond! 🤖"
	botDisconnectedReply = "Disconnected from the grid. Check your connection. ⚡"
)

const botPersona = "You are FormBot, the helpful and futuristic AI assistant of FormApp. " +
	"Your tone is cool, tech-savvy, and efficient. Use occasional emojis like 🚀, ⚡, or 🤖. " +
	"Keep responses concise like a chat message."

var errBotRateLimited = errors.New("bot: rate limited")

// Replier turns a prompt into a reply. It never fails; failures come back
// as fallback text.
type Replier interface {
	Reply(ctx context.Context, prompt string) string
}

// GeminiBot calls the Gemini generateContent REST endpoint.
type GeminiBot struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
	cb       *gobreaker.CircuitBreaker
	limiter  *rate.Limiter
	log      *zap.Logger
}

func NewGeminiBot(cfg BotConfig, apiKey string, logger *zap.Logger) *GeminiBot {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("bot")

	maxFailures := uint32(cfg.MaxFailures)
	if maxFailures == 0 {
		maxFailures = 3
	}
	st := gobreaker.Settings{
		Name:        "formbot",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Duration(cfg.CooldownSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state", zap.String("name", name),
				zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}

	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 15
	}

	return &GeminiBot{
		apiKey:   apiKey,
		model:    cfg.Model,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		client:   &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		cb:       gobreaker.NewCircuitBreaker(st),
		limiter:  rate.NewLimiter(rate.Limit(float64(perMinute)/60), perMinute),
		log:      logger,
	}
}

func (b *GeminiBot) Reply(ctx context.Context, prompt string) string {
	if b.apiKey == "" {
		b.log.Warn("no API key configured, assistant disabled")
		return botOfflineReply
	}

	out, err := b.cb.Execute(func() (interface{}, error) {
		if !b.limiter.Allow() {
			return nil, errBotRateLimited
		}
		return b.generate(ctx, prompt)
	})
	if err != nil {
		b.log.Error("generate failed", zap.Error(err))
		return botDisconnectedReply
	}
	text := strings.TrimSpace(out.(string))
	if text == "" {
		return botEmptyReply
	}
	return text
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction geminiContent   `json:"system_instruction"`
	Contents          []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (b *GeminiBot) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		SystemInstruction: geminiContent{Parts: []geminiPart{{Text: botPersona}}},
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	u := fmt.Sprintf("%s/models/%s:generateContent", b.endpoint, url.PathEscape(b.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var gr geminiResponse
	if err := json.Unmarshal(data, &gr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(gr.Candidates) == 0 {
		return "", nil
	}
	var sb strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

// botReplyMsg carries a FormBot reply back to the chat it was asked in.
type botReplyMsg struct {
	ChatID string
	Text   string
}

// askBotCmd runs the request off the update loop.
func askBotCmd(bot Replier, chatID, prompt string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return botReplyMsg{ChatID: chatID, Text: bot.Reply(ctx, prompt)}
	}
}
