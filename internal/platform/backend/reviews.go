package backend

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
)

func (c *Client) GetReview(ctx context.Context, orgID, reviewID int64) (*Review, error) {
	raw, err := c.call(ctx, request{
		operation: "get_review",
		method:    http.MethodGet,
		path:      "/performance-reviews/" + pathID(reviewID),
		orgID:     orgID,
	})
	if err != nil {
		return nil, err
	}
	var review Review
	ok, err := decodeObject("get_review", raw, &review)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &Error{Operation: "get_review", Status: http.StatusNotFound, Message: "performance review not found"}
	}
	return &review, nil
}

func (c *Client) CreateReview(ctx context.Context, orgID int64, review SaveReview) (int64, error) {
	raw, err := c.call(ctx, request{
		operation: "create_review",
		method:    http.MethodPost,
		path:      "/performance-reviews",
		orgID:     orgID,
		body:      review,
	})
	if err != nil {
		return 0, err
	}
	var created CreatedReview
	if _, err := decodeObject("create_review", raw, &created); err != nil {
		return 0, err
	}
	if created.ID == 0 {
		return 0, errors.New("create_review: backend returned no review id")
	}
	return created.ID, nil
}

func (c *Client) UpdateReview(ctx context.Context, orgID, reviewID int64, review SaveReview) error {
	_, err := c.call(ctx, request{
		operation: "update_review",
		method:    http.MethodPut,
		path:      "/performance-reviews/" + pathID(reviewID),
		orgID:     orgID,
		body:      review,
	})
	return err
}

func (c *Client) DeleteSkillEntry(ctx context.Context, orgID, reviewID, entryID int64) error {
	_, err := c.call(ctx, request{
		operation: "delete_skill_entry",
		method:    http.MethodDelete,
		path:      "/performance-reviews/" + pathID(reviewID) + "/skill-entries/" + pathID(entryID),
		orgID:     orgID,
	})
	return err
}

func (c *Client) AddSkillEntries(ctx context.Context, orgID, reviewID int64, entries []SaveSkillEntry) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := c.call(ctx, request{
		operation: "add_skill_entries",
		method:    http.MethodPost,
		path:      "/performance-reviews/" + pathID(reviewID) + "/skill-entries/bulk",
		orgID:     orgID,
		body:      entries,
	})
	return err
}

// GenerateSkillEntries asks the backend to extract skill ratings from free text.
func (c *Client) GenerateSkillEntries(ctx context.Context, orgID int64, rawText string) ([]GeneratedSkillEntry, error) {
	raw, err := c.call(ctx, request{
		operation: "generate_skill_entries",
		method:    http.MethodPost,
		path:      "/performance-reviews/generate-skill-entries",
		orgID:     orgID,
		body:      map[string]string{"rawText": rawText},
	})
	if err != nil {
		return nil, err
	}
	return decodeList[GeneratedSkillEntry]("generate_skill_entries", raw)
}
