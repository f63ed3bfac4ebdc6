// Package search drives debounced, sequence-guarded entity searches
// against the sports-events API.
package search

import (
	"strings"
	"unicode/utf8"

	"github.com/HerbHall/sportdesk/pkg/models"
)

// MinQueryRunes is the shortest trimmed free text that triggers a query.
const MinQueryRunes = 2

// Phase is the controller's position in its state machine.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseDebouncing Phase = "debouncing"
	PhaseQuerying   Phase = "querying"
	PhaseResults    Phase = "results"
	PhaseError      Phase = "error"
)

// State is an immutable snapshot of a Controller.
type State struct {
	Phase   Phase                   `json:"phase" yaml:"phase"`
	Filters models.SearchFilters    `json:"filters" yaml:"filters"`
	Page    models.SearchResultPage `json:"page" yaml:"page"`
	// Error holds the user-facing message while Phase is PhaseError.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
	// Seq is the sequence number of the latest issued query.
	Seq uint64 `json:"seq" yaml:"seq"`

	SportOptions  []models.Sport `json:"sport_options" yaml:"sport_options"`
	SportsLoading bool           `json:"sports_loading" yaml:"sports_loading"`
}

func (s State) clone() State {
	out := s
	out.Page.Items = append([]models.Entity(nil), s.Page.Items...)
	if out.Page.Items == nil {
		out.Page.Items = []models.Entity{}
	}
	out.SportOptions = append([]models.Sport(nil), s.SportOptions...)
	return out
}

// ShouldQuery reports whether f warrants a network query: at least
// MinQueryRunes of trimmed free text, or a sub-filter.
func ShouldQuery(f models.SearchFilters) bool {
	return utf8.RuneCountInString(strings.TrimSpace(f.FreeText)) >= MinQueryRunes || f.SubFilter != ""
}

// RequestFor builds the wire request for f. Page and page size fall back
// to 1 and models.DefaultPerPage.
func RequestFor(f models.SearchFilters) models.SearchRequest {
	page := f.PageNumber
	if page < 1 {
		page = 1
	}
	perPage := f.PerPage
	if perPage <= 0 {
		perPage = models.DefaultPerPage
	}
	return models.SearchRequest{
		Search:     strings.TrimSpace(f.FreeText),
		MainSport:  f.SubFilter,
		PageNumber: page,
		PerPage:    perPage,
	}
}
