// Package chat proxies dashboard conversations to an OpenAI-compatible
// completion endpoint, injecting a system prompt for the user's job role.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/novarobotics/stormdrain/internal/metrics"
)

type Role string

const (
	RoleOffice Role = "office"
	RoleField  Role = "field"
	RoleData   Role = "data"
)

// ServerErrorMessage is shown to users whenever the model server cannot answer.
const ServerErrorMessage = "현재 노바로보틱스 GPU 서버와 통신이 원활하지 않습니다."

var (
	ErrTimeout     = errors.New("chat completion timed out")
	ErrUnavailable = errors.New("chat completion unavailable")
)

var stopSequences = []string{"<|im_end|>", "<|endoftext|>"}

var roleFirstLine = map[Role]string{
	RoleOffice: "너는 사무직 사용자를 위한 AI 비서다. 전략적 인사이트, 비용, 기획·데이터 중심으로 답변해라.",
	RoleField:  "너는 노동자·현장 관리직을 위한 AI 비서다. 현장 안전 지표, 작업 효율, 직관적인 관리 지시 중심으로 답변해라.",
	RoleData:   "너는 데이터 관리직을 위한 AI 비서다. 수치 정확성, 통계·이상치, DB 연동 데이터 중심으로 답변해라.",
}

const commonSystemSuffix = " Answer only in Korean. 수치·데이터가 나오면 반드시 Markdown 테이블로 정리해라. 간결하고 명확하게 답변해라."

// ParseRole maps free-form input onto a known role, defaulting to office.
func ParseRole(s string) Role {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := roleFirstLine[r]; ok {
		return r
	}
	return RoleOffice
}

func SystemPrompt(role Role) string {
	return roleFirstLine[ParseRole(string(role))] + commonSystemSuffix
}

type Message struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content" binding:"required"`
}

type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	TopP        float64
	Timeout     time.Duration
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	TopP        float64   `json:"top_p"`
	Stop        []string  `json:"stop"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type Client struct {
	baseURL    string
	apiKey     string
	opts       Options
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, opts Options) *Client {
	if opts.Model == "" {
		opts.Model = "qwen-32b"
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 512
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	if apiKey == "" {
		apiKey = "none"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		opts:       opts,
		httpClient: &http.Client{},
	}
}

func (c *Client) Timeout() time.Duration {
	return c.opts.Timeout
}

// Complete sends history, prefixed with the role's system prompt, and returns
// the trimmed answer. Failures wrap ErrTimeout or ErrUnavailable.
func (c *Client) Complete(ctx context.Context, history []Message, role Role) (string, error) {
	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, Message{Role: "system", Content: SystemPrompt(role)})
	messages = append(messages, history...)

	body, err := json.Marshal(completionRequest{
		Model:       c.opts.Model,
		Messages:    messages,
		MaxTokens:   c.opts.MaxTokens,
		Temperature: c.opts.Temperature,
		TopP:        c.opts.TopP,
		Stop:        stopSequences,
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			metrics.UpstreamRequests.WithLabelValues("llm", "timeout").Inc()
			return "", fmt.Errorf("%w after %s", ErrTimeout, c.opts.Timeout)
		}
		metrics.UpstreamRequests.WithLabelValues("llm", "error").Inc()
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		metrics.UpstreamRequests.WithLabelValues("llm", "error").Inc()
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		metrics.UpstreamRequests.WithLabelValues("llm", "error").Inc()
		if isTimeout(err) {
			return "", fmt.Errorf("%w after %s", ErrTimeout, c.opts.Timeout)
		}
		return "", fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == nil {
		metrics.UpstreamRequests.WithLabelValues("llm", "error").Inc()
		return "", fmt.Errorf("%w: empty completion", ErrUnavailable)
	}

	metrics.UpstreamRequests.WithLabelValues("llm", "ok").Inc()
	return strings.TrimSpace(*out.Choices[0].Message.Content), nil
}

// UserMessage renders a Complete error as the Korean notice shown in the chat view.
func UserMessage(err error, timeout time.Duration) string {
	if errors.Is(err, ErrTimeout) {
		return fmt.Sprintf("응답 시간이 %d초를 초과했습니다. 다시 시도해 주세요.", int(timeout.Seconds()))
	}
	return ServerErrorMessage
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
