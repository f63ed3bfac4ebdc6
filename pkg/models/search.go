package models

// DefaultPerPage is the page size used when none is configured.
const DefaultPerPage = 10

// SearchFilters is the user-controlled input of a search session.
// SubFilter only has meaning while Category is set.
type SearchFilters struct {
	FreeText   string `json:"free_text" yaml:"free_text"`
	Category   string `json:"category,omitempty" yaml:"category,omitempty"`
	SubFilter  string `json:"sub_filter,omitempty" yaml:"sub_filter,omitempty"`
	PageNumber int    `json:"page_number" yaml:"page_number"`
	PerPage    int    `json:"per_page" yaml:"per_page"`
}

// SearchRequest is the wire body of POST /search/{kind}.
type SearchRequest struct {
	Search     string `json:"search,omitempty"`
	MainSport  string `json:"mainSport,omitempty"`
	PageNumber int    `json:"pageNumber"`
	PerPage    int    `json:"perPage"`
}

// SearchResultPage is one completed page of results.
type SearchResultPage struct {
	Items       []Entity `json:"items" yaml:"items"`
	CurrentPage int      `json:"current_page" yaml:"current_page"`
	TotalPages  int      `json:"total_pages" yaml:"total_pages"`
	TotalCount  int      `json:"total_count" yaml:"total_count"`
	PerPage     int      `json:"per_page" yaml:"per_page"`
}

// EmptyPage returns the default page shown when no query is active.
func EmptyPage(perPage int) SearchResultPage {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return SearchResultPage{
		Items:       []Entity{},
		CurrentPage: 1,
		TotalPages:  1,
		PerPage:     perPage,
	}
}

// NewResultPage builds a page and enforces its invariants: TotalPages is
// at least 1, CurrentPage lies in [1, TotalPages] and Items never exceeds
// PerPage.
func NewResultPage(items []Entity, currentPage, totalPages, totalCount, perPage int) SearchResultPage {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if items == nil {
		items = []Entity{}
	}
	if len(items) > perPage {
		items = items[:perPage]
	}
	if totalPages < 1 {
		totalPages = 1
	}
	if currentPage < 1 {
		currentPage = 1
	}
	if currentPage > totalPages {
		currentPage = totalPages
	}
	if totalCount < len(items) {
		totalCount = len(items)
	}
	return SearchResultPage{
		Items:       items,
		CurrentPage: currentPage,
		TotalPages:  totalPages,
		TotalCount:  totalCount,
		PerPage:     perPage,
	}
}
