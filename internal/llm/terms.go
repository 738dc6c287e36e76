package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const termsSystemPrompt = `You are a programming expert that helps find relevant GitHub libraries. Generate 3 different search queries that would help find relevant libraries. Focus on technical and functional aspects, avoid AI/ML terms unless specifically requested. Return only the search terms, one per line.`

// GenerateSearchTerms expands description into alternative search terms.
// The description itself is always one of the terms. Any failure
// yields just the description.
func (c *Client) GenerateSearchTerms(ctx context.Context, language, description string) []string {
	content, err := c.complete(ctx, openai.ChatCompletionRequest{
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: termsSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(
				"I need to find GitHub libraries for %s that can help with: %s", language, description)},
		},
		Temperature: 0.7,
		MaxTokens:   200,
	})
	if err != nil {
		c.logger.Warn("search term generation failed, using description",
			zap.String("language", language), zap.Error(err))
		return []string{description}
	}
	return ParseTerms(content, description)
}

// ParseTerms splits model output into trimmed non-empty lines, appends
// description and removes duplicates keeping first occurrence.
func ParseTerms(content, description string) []string {
	lines := strings.Split(content, "\n")

	seen := make(map[string]bool, len(lines)+1)
	terms := make([]string, 0, len(lines)+1)
	for _, line := range lines {
		term := strings.TrimSpace(line)
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		terms = append(terms, term)
	}
	if !seen[description] {
		terms = append(terms, description)
	}
	return terms
}
