package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testBotConfig(endpoint string) BotConfig {
	return BotConfig{
		Model:             "test-model",
		Endpoint:          endpoint + "/",
		TimeoutSeconds:    5,
		RequestsPerMinute: 600,
		MaxFailures:       2,
		CooldownSeconds:   60,
	}
}

func geminiHandler(t *testing.T, calls *int32, status int, reply string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/models/test-model:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "secret" {
			t.Errorf("api key header = %q", got)
		}
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "ping" {
			t.Errorf("contents = %+v", req.Contents)
		}
		if len(req.SystemInstruction.Parts) != 1 || req.SystemInstruction.Parts[0].Text != botPersona {
			t.Errorf("system instruction = %+v", req.SystemInstruction)
		}

		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":"nope"}`))
			return
		}
		var resp geminiResponse
		if reply != "" {
			resp.Candidates = append(resp.Candidates, struct {
				Content geminiContent `json:"content"`
			}{Content: geminiContent{Role: "model", Parts: []geminiPart{{Text: reply}}}})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func TestGeminiBotReply(t *testing.T) {
	tests := []struct {
		name   string
		status int
		reply  string
		want   string
	}{
		{"success", http.StatusOK, "  pong 🤖 ", "pong 🤖"},
		{"no candidates", http.StatusOK, "", botEmptyReply},
		{"server error", http.StatusInternalServerError, "", botDisconnectedReply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(geminiHandler(t, &calls, tt.status, tt.reply))
			defer srv.Close()

			bot := NewGeminiBot(testBotConfig(srv.URL), "secret", nil)
			if got := bot.Reply(context.Background(), "ping"); got != tt.want {
				t.Errorf("Reply = %q, want %q", got, tt.want)
			}
			if got := atomic.LoadInt32(&calls); got != 1 {
				t.Errorf("server calls = %d, want 1", got)
			}
		})
	}
}

func TestGeminiBotWithoutKey(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(geminiHandler(t, &calls, http.StatusOK, "pong"))
	defer srv.Close()

	bot := NewGeminiBot(testBotConfig(srv.URL), "", nil)
	if got := bot.Reply(context.Background(), "ping"); got != botOfflineReply {
		t.Errorf("Reply = %q, want offline reply", got)
	}
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Errorf("server was called %d times", got)
	}
}

func TestGeminiBotBreakerOpens(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(geminiHandler(t, &calls, http.StatusServiceUnavailable, ""))
	defer srv.Close()

	bot := NewGeminiBot(testBotConfig(srv.URL), "secret", nil)
	for i := 0; i < 5; i++ {
		if got := bot.Reply(context.Background(), "ping"); got != botDisconnectedReply {
			t.Errorf("attempt %d = %q", i, got)
		}
	}
	// MaxFailures is 2, so the breaker stops forwarding after two calls.
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("server calls = %d, want 2", got)
	}
}

func TestGeminiBotRateLimited(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(geminiHandler(t, &calls, http.StatusOK, "pong"))
	defer srv.Close()

	cfg := testBotConfig(srv.URL)
	cfg.RequestsPerMinute = 1
	cfg.MaxFailures = 100
	bot := NewGeminiBot(cfg, "secret", nil)

	if got := bot.Reply(context.Background(), "ping"); got != "pong" {
		t.Fatalf("first Reply = %q", got)
	}
	if got := bot.Reply(context.Background(), "ping"); got != botDisconnectedReply {
		t.Errorf("second Reply = %q, want disconnected reply", got)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server calls = %d, want 1", got)
	}
}

type stubReplier struct {
	reply   string
	prompts chan string
}

func (s *stubReplier) Reply(_ context.Context, prompt string) string {
	if s.prompts != nil {
		s.prompts <- prompt
	}
	return s.reply
}

func TestAskBotCmd(t *testing.T) {
	bot := &stubReplier{reply: "beep", prompts: make(chan string, 1)}
	msg := askBotCmd(bot, "chat_1", "hello", time.Second)()
	got, ok := msg.(botReplyMsg)
	if !ok {
		t.Fatalf("msg = %T, want botReplyMsg", msg)
	}
	if got.ChatID != "chat_1" || got.Text != "beep" {
		t.Errorf("msg = %+v", got)
	}
	if p := <-bot.prompts; p != "hello" {
		t.Errorf("prompt = %q", p)
	}
}
