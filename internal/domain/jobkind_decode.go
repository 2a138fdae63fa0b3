package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// DecodeJobKind builds a tagged JobKind from an API caller's job_type name
// and a loosely-typed parameters map (as decoded from JSON request bodies),
// populating only the payload field Name selects.
func DecodeJobKind(name JobKindName, parameters map[string]any) (JobKind, error) {
	kind := JobKind{Name: name}
	switch name {
	case KindKeywordCrawl:
		var params KeywordCrawlParams
		if err := mapstructure.Decode(parameters, &params); err != nil {
			return JobKind{}, fmt.Errorf("decode keyword_crawl parameters: %w", err)
		}
		kind.KeywordCrawl = &params
	case KindTrendingCrawl:
		var params TrendingCrawlParams
		if err := mapstructure.Decode(parameters, &params); err != nil {
			return JobKind{}, fmt.Errorf("decode trending_crawl parameters: %w", err)
		}
		kind.TrendingCrawl = &params
	case KindAllKeywordsCrawl:
		var params AllKeywordsCrawlParams
		if err := mapstructure.Decode(parameters, &params); err != nil {
			return JobKind{}, fmt.Errorf("decode all_keywords_crawl parameters: %w", err)
		}
		kind.AllKeywordsCrawl = &params
	case KindCommentsCrawl:
		var params CommentsCrawlParams
		if err := mapstructure.Decode(parameters, &params); err != nil {
			return JobKind{}, fmt.Errorf("decode comments_crawl parameters: %w", err)
		}
		kind.CommentsCrawl = &params
	default:
		return JobKind{}, fmt.Errorf("unknown job kind: %q", name)
	}
	return kind, nil
}
