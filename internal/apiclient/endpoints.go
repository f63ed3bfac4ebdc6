package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/HerbHall/sportdesk/pkg/models"
)

// searchResponse is the body of POST /search/{kind}; pagination fields sit
// beside the envelope rather than inside data.
type searchResponse struct {
	Data       []models.Entity `json:"data"`
	Total      int             `json:"total"`
	PerPage    int             `json:"perPage"`
	PageNumber int             `json:"pageNumber"`
	TotalPages int             `json:"totalPages"`
}

// Search queries POST /search/{kind} and returns one normalized page.
func (c *Client) Search(ctx context.Context, kind models.EntityKind, req models.SearchRequest) (*models.SearchResultPage, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("apiclient: unknown entity kind %q", kind)
	}
	endpoint := "search_" + string(kind)
	raw, err := c.call(ctx, endpoint, http.MethodPost, "/search/"+string(kind), req)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := decode(endpoint, raw, &resp); err != nil {
		return nil, err
	}

	perPage := resp.PerPage
	if perPage <= 0 {
		perPage = req.PerPage
	}
	page := models.NewResultPage(resp.Data, resp.PageNumber, resp.TotalPages, resp.Total, perPage)
	return &page, nil
}

// Sports lists the sports of a sport group via POST /reference/sports.
// An empty group lists every sport.
func (c *Client) Sports(ctx context.Context, group string) ([]models.Sport, error) {
	body := struct {
		Sport string `json:"sport,omitempty"`
	}{Sport: group}

	raw, err := c.call(ctx, "reference_sports", http.MethodPost, "/reference/sports", body)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data []models.Sport `json:"data"`
	}
	if err := decode("reference_sports", raw, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		resp.Data = []models.Sport{}
	}
	return resp.Data, nil
}

// Coach fetches GET /coach/{id}.
func (c *Client) Coach(ctx context.Context, id string) (*models.CoachDetail, error) {
	raw, err := c.call(ctx, "coach", http.MethodGet, "/coach/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data *models.CoachDetail `json:"data"`
	}
	if err := decode("coach", raw, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, newError(ErrCodeMalformed, "coach response has no data", nil)
	}
	return resp.Data, nil
}

// ClubsCreatedBy lists clubs created by the given coach.
func (c *Client) ClubsCreatedBy(ctx context.Context, coachID string) ([]models.Entity, error) {
	return c.createdBy(ctx, "clubs_created_by", "/club/created-by/"+url.PathEscape(coachID))
}

// GroupsCreatedBy lists groups created by the given coach.
func (c *Client) GroupsCreatedBy(ctx context.Context, coachID string) ([]models.Entity, error) {
	return c.createdBy(ctx, "groups_created_by", "/group/created-by/"+url.PathEscape(coachID))
}

func (c *Client) createdBy(ctx context.Context, endpoint, path string) ([]models.Entity, error) {
	raw, err := c.call(ctx, endpoint, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data []models.Entity `json:"data"`
	}
	if err := decode(endpoint, raw, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		resp.Data = []models.Entity{}
	}
	return resp.Data, nil
}
