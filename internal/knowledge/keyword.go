package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Article is one knowledge base entry.
type Article struct {
	ID       string   `json:"id"`
	Category string   `json:"category"`
	Issue    string   `json:"issue"`
	Keywords []string `json:"keywords"`
	Steps    []string `json:"steps"`
}

// KeywordBase is the default lookup implementation: case-insensitive
// keyword and issue-substring matching over a JSON article file. At
// most two articles are included in a solution.
type KeywordBase struct {
	articles []Article
}

// NewKeywordBase loads articles from path.
func NewKeywordBase(path string) (*KeywordBase, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base: %w", err)
	}
	var articles []Article
	if err := json.Unmarshal(raw, &articles); err != nil {
		return nil, fmt.Errorf("parse knowledge base: %w", err)
	}
	return &KeywordBase{articles: articles}, nil
}

// NewKeywordBaseFromArticles builds a base from in-memory articles.
func NewKeywordBaseFromArticles(articles []Article) *KeywordBase {
	return &KeywordBase{articles: articles}
}

// Lookup matches the query against keywords and issue text.
func (b *KeywordBase) Lookup(_ context.Context, query string) (Result, error) {
	queryLower := strings.ToLower(query)

	var matched []Article
	topicKey := ""
	for _, article := range b.articles {
		keywordHit := ""
		for _, kw := range article.Keywords {
			if strings.Contains(queryLower, strings.ToLower(kw)) {
				keywordHit = kw
				break
			}
		}
		issueHit := strings.Contains(strings.ToLower(article.Issue), queryLower)
		if keywordHit == "" && !issueHit {
			continue
		}
		matched = append(matched, article)
		if topicKey == "" {
			if keywordHit != "" {
				topicKey = TopicKey(keywordHit)
			} else {
				topicKey = TopicKey(article.ID)
			}
		}
	}

	if len(matched) == 0 {
		return NotFound, nil
	}
	if len(matched) > 2 {
		matched = matched[:2]
	}

	var sb strings.Builder
	for i, article := range matched {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("ISSUE: ")
		sb.WriteString(article.Issue)
		sb.WriteString("\nSOLUTION:")
		for j, step := range article.Steps {
			sb.WriteString(fmt.Sprintf("\n%d. %s", j+1, step))
		}
	}

	return Result{Found: true, Solution: sb.String(), TopicKey: topicKey}, nil
}

// TopicKey normalizes a raw key into the session-level topic identifier.
func TopicKey(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.Join(strings.Fields(key), "_")
	return key
}
