package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spec-kit/support-pilot/internal/domain"
)

const classifierInstruction = `You label IT support utterances.
Respond with JSON only: {"intent": "faq"|"create_ticket"|"status_query",
"negative_signal": bool, "urgency": bool}.
negative_signal is true when the user says a previously offered solution
failed. urgency is true when the user signals time pressure.`

// GeminiClassifier labels utterances with a hosted Gemini model.
// On any model or parse failure it falls back to the keyword
// classifier so a flaky upstream never blocks routing.
type GeminiClassifier struct {
	client   *genai.Client
	model    string
	fallback *KeywordClassifier
	logger   *zap.Logger
}

// NewGeminiClassifier builds the classifier.
func NewGeminiClassifier(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GeminiClassifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClassifier{
		client:   client,
		model:    model,
		fallback: NewKeywordClassifier(),
		logger:   logger,
	}, nil
}

type geminiVerdict struct {
	Intent         string `json:"intent"`
	NegativeSignal bool   `json:"negative_signal"`
	Urgency        bool   `json:"urgency"`
}

// Classify asks the model for a verdict.
func (c *GeminiClassifier) Classify(ctx context.Context, utterance string, history []domain.Turn) (Classification, error) {
	prompt := utterance
	if last := lastResponse(history); last != "" {
		prompt = "Previous answer given to the user:\n" + last + "\n\nUser now says:\n" + utterance
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(classifierInstruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		c.logger.Warn("gemini classification failed, using keyword fallback", zap.Error(err))
		return c.fallback.Classify(ctx, utterance, history)
	}

	var verdict geminiVerdict
	text := strings.TrimSpace(result.Text())
	if err := json.Unmarshal([]byte(text), &verdict); err != nil {
		c.logger.Warn("gemini returned malformed verdict, using keyword fallback",
			zap.String("raw", text), zap.Error(err))
		return c.fallback.Classify(ctx, utterance, history)
	}

	classification := Classification{
		NegativeSignal: verdict.NegativeSignal,
		Urgency:        verdict.Urgency,
	}
	switch Intent(verdict.Intent) {
	case IntentFAQ, IntentCreateTicket, IntentStatusQuery:
		classification.Intent = Intent(verdict.Intent)
	default:
		classification.Intent = IntentFAQ
	}
	return classification, nil
}

func lastResponse(history []domain.Turn) string {
	if len(history) == 0 {
		return ""
	}
	return history[len(history)-1].Response
}
