package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-2.5-flash"

var ErrUnavailable = errors.New("assistant not configured")

type GeminiModel struct {
	client *genai.Client
	name   string
}

func NewGeminiModel(ctx context.Context, apiKey, name string) (*GeminiModel, error) {
	if name == "" {
		name = DefaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create generative client: %w", err)
	}
	return &GeminiModel{client: client, name: name}, nil
}

func (g *GeminiModel) StartChat(instruction string) Chat {
	model := g.client.GenerativeModel(g.name)
	model.SystemInstruction = genai.NewUserContent(genai.Text(instruction))
	return &geminiChat{session: model.StartChat()}
}

func (g *GeminiModel) Close() error { return g.client.Close() }

type geminiChat struct {
	session *genai.ChatSession
}

func (c *geminiChat) SendStream(ctx context.Context, text string) Stream {
	return &geminiStream{it: c.session.SendMessageStream(ctx, genai.Text(text))}
}

type geminiStream struct {
	it *genai.GenerateContentResponseIterator
}

func (s *geminiStream) Next() (string, error) {
	resp, err := s.it.Next()
	if errors.Is(err, iterator.Done) {
		return "", ErrStreamDone
	}
	if err != nil {
		return "", err
	}
	return responseText(resp), nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				b.WriteString(string(txt))
			}
		}
	}
	return b.String()
}

// Offline stands in when no API key is configured; every reply fails, so the
// shopper sees the fallback message.
type Offline struct{}

func (Offline) StartChat(string) Chat { return offlineChat{} }

type offlineChat struct{}

func (offlineChat) SendStream(context.Context, string) Stream { return offlineStream{} }

type offlineStream struct{}

func (offlineStream) Next() (string, error) { return "", ErrUnavailable }
