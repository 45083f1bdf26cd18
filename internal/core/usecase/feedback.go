package usecase

import (
	_ "embed"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/knowledge-retriever/internal/core/domain"
)

//go:embed feedback_patterns.yaml
var feedbackPatternsYAML []byte

type FeedbackCategory string

const (
	FeedbackRetrievalQuality FeedbackCategory = "retrieval_quality"
	FeedbackAccuracy         FeedbackCategory = "accuracy"
	FeedbackCompleteness     FeedbackCategory = "completeness"
	FeedbackRelevance        FeedbackCategory = "relevance"
	FeedbackCitation         FeedbackCategory = "citation"
	FeedbackUnknown          FeedbackCategory = "unknown"
)

type categoryPatterns struct {
	category FeedbackCategory
	patterns []*regexp.Regexp
}

// FeedbackStrategist maps evaluator failure reasons (or free-text feedback)
// to search-strategy adjustments. Classification is driven by the embedded
// ordered pattern table so it stays auditable independent of control flow.
type FeedbackStrategist struct {
	table []categoryPatterns

	kStep       int
	kCommonStep int
	lambdaStep  float64
	fetchKStep  float64
	fetchKMax   float64
}

func NewFeedbackStrategist() (*FeedbackStrategist, error) {
	var parsed struct {
		Categories []struct {
			Name     string   `yaml:"name"`
			Patterns []string `yaml:"patterns"`
		} `yaml:"categories"`
	}
	if err := yaml.Unmarshal(feedbackPatternsYAML, &parsed); err != nil {
		return nil, fmt.Errorf("parse feedback pattern table: %w", err)
	}

	table := make([]categoryPatterns, 0, len(parsed.Categories))
	for _, entry := range parsed.Categories {
		compiled := make([]*regexp.Regexp, 0, len(entry.Patterns))
		for _, pattern := range entry.Patterns {
			re, err := regexp.Compile("(?i)" + pattern)
			if err != nil {
				return nil, fmt.Errorf("compile feedback pattern %q: %w", pattern, err)
			}
			compiled = append(compiled, re)
		}
		table = append(table, categoryPatterns{
			category: FeedbackCategory(entry.Name),
			patterns: compiled,
		})
	}

	return &FeedbackStrategist{
		table:       table,
		kStep:       2,
		kCommonStep: 1,
		lambdaStep:  0.2,
		fetchKStep:  1.0,
		fetchKMax:   5.0,
	}, nil
}

// Classify returns every category whose pattern list matches the feedback,
// in table order. No match yields {unknown}.
func (s *FeedbackStrategist) Classify(feedback string) []FeedbackCategory {
	matched := make([]FeedbackCategory, 0, 2)
	for _, entry := range s.table {
		for _, re := range entry.patterns {
			if re.MatchString(feedback) {
				matched = append(matched, entry.category)
				break
			}
		}
	}
	if len(matched) == 0 {
		return []FeedbackCategory{FeedbackUnknown}
	}
	return matched
}

// Suggest mutates a copy of the current strategy per matched category.
// A retry count of one or more unconditionally forces hybrid search plus
// reranking as a floor, regardless of category.
func (s *FeedbackStrategist) Suggest(feedback string, current domain.SearchStrategy, retryCount int) domain.SearchStrategy {
	next := current

	for _, category := range s.Classify(feedback) {
		switch category {
		case FeedbackRetrievalQuality:
			next.K += s.kStep
			next.KCommon += s.kCommonStep
			next.UseHybrid = true
			next.UseRerank = true
			next.MMRLambda = clamp01(next.MMRLambda - s.lambdaStep)
			next.ExpandSearch = true
		case FeedbackAccuracy:
			next.UseRerank = true
			next.FetchKMultiplier += s.fetchKStep
			if next.FetchKMultiplier > s.fetchKMax {
				next.FetchKMultiplier = s.fetchKMax
			}
		case FeedbackCompleteness:
			next.K += s.kStep
			next.ExpandSearch = true
		case FeedbackRelevance:
			next.MMRLambda = clamp01(next.MMRLambda + s.lambdaStep)
			next.UseMMR = true
		case FeedbackCitation:
			next.KCommon += 2 * s.kCommonStep
		case FeedbackUnknown:
			next.K += 1
		}
	}

	if retryCount >= 1 {
		next.UseHybrid = true
		next.UseRerank = true
	}
	return next
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
