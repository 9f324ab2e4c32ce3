package risk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/forecourt-hq/sentinel/internal/review"
)

// ErrExternalService indicates the model backend failed or returned an
// unusable reply. Callers fall back to the local rule engine.
var ErrExternalService = errors.New("risk: external service failure")

// Assessment is one model-produced risk verdict.
type Assessment struct {
	TransactionID string  `json:"transactionId"`
	Score         float64 `json:"score"`
	Note          string  `json:"note"`
}

// Scorer produces risk assessments for a batch of transactions.
type Scorer interface {
	Score(ctx context.Context, txns []review.Transaction) ([]Assessment, error)
}

// GeminiScorer asks a Gemini model to assess fraud risk.
type GeminiScorer struct {
	client *genai.Client
	model  string
}

// NewGeminiScorer creates a scorer backed by the Gemini API. Credentials are
// picked up from the environment by the genai client.
func NewGeminiScorer(ctx context.Context, model string) (*GeminiScorer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("risk: create genai client: %w", err)
	}
	return &GeminiScorer{client: client, model: model}, nil
}

// Score sends one batch of transactions to the model and parses its verdicts.
func (g *GeminiScorer) Score(ctx context.Context, txns []review.Transaction) ([]Assessment, error) {
	if len(txns) == 0 {
		return nil, nil
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildPrompt(txns)},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: generate content: %v", ErrExternalService, err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("%w: empty model response", ErrExternalService)
	}

	var assessments []Assessment
	if err := json.Unmarshal([]byte(cleanModelJSON(rawText)), &assessments); err != nil {
		return nil, fmt.Errorf("%w: unmarshal model reply: %v", ErrExternalService, err)
	}

	out := assessments[:0]
	for _, a := range assessments {
		if a.TransactionID == "" {
			continue
		}
		if a.Score < 0 {
			a.Score = 0
		}
		if a.Score > 1 {
			a.Score = 1
		}
		out = append(out, a)
	}
	return out, nil
}

func buildPrompt(txns []review.Transaction) string {
	var b strings.Builder
	b.WriteString("You are a loss-prevention analyst for a fuel retailer.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Assess the fraud/shrinkage risk of each point-of-sale transaction below.\n")
	b.WriteString("- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n")
	b.WriteString("- Output a JSON array of objects.\n\n")
	b.WriteString("Each object must have these fields:\n")
	b.WriteString("- \"transactionId\": string, copied exactly from the input\n")
	b.WriteString("- \"score\": number between 0 and 1 (1 = highest risk)\n")
	b.WriteString("- \"note\": one short sentence explaining the score\n\n")
	b.WriteString("Return ONLY valid raw JSON.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Output must begin with \"[\" and end with \"]\".\n\n")
	b.WriteString("Transactions:\n")
	for _, t := range txns {
		fmt.Fprintf(&b, "- id=%s date=%s register=%s employee=%q type=%q amount=%s flagged=%t reason=%q\n",
			t.ID, t.Date.Format("2006-01-02"), t.RegisterID, t.EmployeeName, t.Type, t.Amount.StringFixed(2), t.IsFlagged, t.FlaggedReason)
	}
	return b.String()
}

// cleanModelJSON strips markdown fences and surrounding junk the model may
// emit despite the instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
