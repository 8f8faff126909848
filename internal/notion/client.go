// Package notion mirrors newly added applications into a Notion database.
package notion

import (
	"context"
	"fmt"

	gnt "github.com/dstotijn/go-notion"

	"github.com/sumire/jobtracker/internal/domain"
)

// Client creates pages in one Notion database.
type Client struct {
	api        *gnt.Client
	databaseID string
}

// New creates a Client for the database identified by databaseID.
func New(token, databaseID string, opts ...gnt.ClientOption) *Client {
	return &Client{
		api:        gnt.NewClient(token, opts...),
		databaseID: databaseID,
	}
}

// Ping runs a one-row query to check the database is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.api.QueryDatabase(ctx, c.databaseID, &gnt.DatabaseQuery{
		PageSize: 1,
	})
	return err
}

func richText(s string) []gnt.RichText {
	if s == "" {
		return nil
	}
	return []gnt.RichText{
		{
			Text: &gnt.Text{
				Content: s,
			},
		},
	}
}

func buildJobPageProperties(job domain.Job) gnt.DatabasePageProperties {
	props := gnt.DatabasePageProperties{}

	// Position is the title property
	if job.Role != "" {
		props["Position"] = gnt.DatabasePageProperty{
			Title: richText(job.Role),
		}
	}

	if job.CompanyName != "" {
		props["Company"] = gnt.DatabasePageProperty{
			RichText: richText(job.CompanyName),
		}
	}

	if job.Location != "" {
		props["location"] = gnt.DatabasePageProperty{
			RichText: richText(job.Location),
		}
	}

	if job.Status != "" {
		props["Stage"] = gnt.DatabasePageProperty{
			Select: &gnt.SelectOptions{
				Name: string(job.Status),
			},
		}
	}

	if job.Details != "" {
		props["Notes"] = gnt.DatabasePageProperty{
			RichText: richText(job.Details),
		}
	}

	if applied, ok := job.AppliedAt(); ok {
		props["Applied"] = gnt.DatabasePageProperty{
			Date: &gnt.Date{
				Start: gnt.NewDateTime(applied, false),
			},
		}
	}

	return props
}

// CreateJobPage adds a row for job and returns the page id.
func (c *Client) CreateJobPage(ctx context.Context, job domain.Job) (string, error) {
	props := buildJobPageProperties(job)

	params := gnt.CreatePageParams{
		ParentType:             gnt.ParentTypeDatabase,
		ParentID:               c.databaseID,
		DatabasePageProperties: &props,
	}

	page, err := c.api.CreatePage(ctx, params)
	if err != nil {
		return "", err
	}
	return page.ID, nil
}

// MirrorJob implements service.Mirror.
func (c *Client) MirrorJob(ctx context.Context, job domain.Job) error {
	if _, err := c.CreateJobPage(ctx, job); err != nil {
		return fmt.Errorf("notion: mirror job %s: %w", job.ID, err)
	}
	return nil
}
