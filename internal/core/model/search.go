package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// SearchResult is one piece of web evidence. Only the search gateway builds these.
type SearchResult struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	URL         string  `json:"url" validate:"required,http_url"`
	QueryTime   float64 `json:"query_time" validate:"gte=0"`
}

func NewSearchResult(title, description, url string, queryTime float64) (SearchResult, error) {
	r := SearchResult{
		Title:       title,
		Description: description,
		URL:         url,
		QueryTime:   queryTime,
	}
	if err := validate.Struct(r); err != nil {
		return SearchResult{}, fmt.Errorf("invalid search result: %w", err)
	}
	return r, nil
}
