package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kevinmichaelchen/libfinder/internal/models"
	openai "github.com/sashabaranov/go-openai"
)

// MaxReadmeChars bounds the README prefix sent to the model.
const MaxReadmeChars = 1500

const analysisSystemPrompt = `You are a technical analyst specialized in evaluating software libraries. Provide accurate, concise analysis in JSON format.`

const analysisUserTemplate = `Analyze this GitHub library:
Name: %s
Description: %s
README excerpt: %s...

Please analyze the following aspects:
1. Is it free and open source? (true/false)
2. If it's not completely free, what's the pricing model and starting price?
3. Rate the integration complexity from 1-5 (1 being very easy, 5 being very complex)
4. Briefly explain the complexity rating

Respond in JSON format:
{
  "isOpenSource": boolean,
  "pricing": {
    "type": "free" | "paid" | "freemium",
    "startingPrice": string (if applicable)
  },
  "integrationComplexity": number (1-5),
  "complexityReason": string
}`

// DefaultAnalysis fills fields the model left out or got out of range.
func DefaultAnalysis() models.Analysis {
	return models.Analysis{
		IsOpenSource:          true,
		Pricing:               &models.Pricing{Type: models.PricingFree},
		IntegrationComplexity: 3,
		ComplexityReason:      "Analysis unavailable",
	}
}

// Analyze asks the model for an open-source, pricing and integration
// complexity verdict on one repository.
func (c *Client) Analyze(ctx context.Context, name, description, readme string) (*models.Analysis, error) {
	content, err := c.complete(ctx, openai.ChatCompletionRequest{
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analysisSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(
				analysisUserTemplate, name, description, truncateRunes(readme, MaxReadmeChars))},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("analyzing %s: %w", name, err)
	}
	return ParseAnalysis(content)
}

// ParseAnalysis decodes a model verdict and normalizes out-of-range fields.
func ParseAnalysis(content string) (*models.Analysis, error) {
	content = stripCodeFences(content)
	if !strings.HasPrefix(content, "{") {
		return nil, fmt.Errorf("parsing analysis: expected a JSON object\nraw: %s", content)
	}

	var a models.Analysis
	if err := json.Unmarshal([]byte(content), &a); err != nil {
		return nil, fmt.Errorf("parsing analysis: %w\nraw: %s", err, content)
	}

	def := DefaultAnalysis()
	if a.IntegrationComplexity < 1 || a.IntegrationComplexity > 5 {
		a.IntegrationComplexity = def.IntegrationComplexity
	}
	if a.ComplexityReason == "" {
		a.ComplexityReason = def.ComplexityReason
	}
	if a.Pricing != nil && !a.Pricing.Type.Valid() {
		a.Pricing.Type = models.PricingFree
	}
	if a.Pricing != nil && a.Pricing.StartingPrice != nil && *a.Pricing.StartingPrice == "" {
		a.Pricing.StartingPrice = nil
	}
	return &a, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
