package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v57/github"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/rohankatakam/defectset/internal/errors"
	"github.com/rohankatakam/defectset/internal/models"
)

const isoDay = "2006-01-02"

// Client wraps the GitHub API client with rate limiting
type Client struct {
	client      *github.Client
	rateLimiter *rate.Limiter
	logger      *logrus.Logger
}

// NewClient creates a new GitHub client with rate limiting. baseURL points
// at a GitHub Enterprise API root; empty means github.com.
func NewClient(token, baseURL string, rateLimit float64, logger *logrus.Logger) (*Client, error) {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	if baseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, errors.SourceErrorf(err, "invalid github base url %q", baseURL)
		}
	}

	limit := rate.Inf
	if rateLimit > 0 {
		limit = rate.Limit(rateLimit)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Client{
		client:      client,
		rateLimiter: rate.NewLimiter(limit, 1),
		logger:      logger,
	}, nil
}

// FetchReleases returns every published release, named by its tag and
// dated by its publication day.
func (c *Client) FetchReleases(ctx context.Context, owner, name string) ([]models.Version, error) {
	opts := &github.ListOptions{PerPage: 100}

	var versions []models.Version
	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, errors.SourceError(err, "rate limiter")
		}

		releases, resp, err := c.client.Repositories.ListReleases(ctx, owner, name, opts)
		if err != nil {
			return nil, errors.SourceErrorf(err, "fetch releases %s/%s", owner, name)
		}

		for _, r := range releases {
			if r.GetDraft() || r.PublishedAt == nil {
				continue
			}
			versions = append(versions, models.Version{
				Name: r.GetTagName(),
				Date: r.GetPublishedAt().Time.UTC(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return versions, nil
}

// IssueQuery selects the closed issues treated as fixed tickets.
type IssueQuery struct {
	Owner string
	Repo  string
	// Key prefixes issue numbers so tickets read "KEY-123" like commit references.
	Key string
	// BugLabel restricts to issues carrying this label; empty keeps all.
	BugLabel string
	// AffectedLabelPrefix marks labels naming affected versions, e.g. "affects:".
	AffectedLabelPrefix string
}

// FetchFixedIssues returns closed issues (pull requests excluded) as raw tickets.
func (c *Client) FetchFixedIssues(ctx context.Context, q IssueQuery) ([]models.RawTicket, error) {
	opts := &github.IssueListByRepoOptions{
		State: "closed",
		ListOptions: github.ListOptions{
			PerPage: 100,
		},
	}
	if q.BugLabel != "" {
		opts.Labels = []string{q.BugLabel}
	}

	var tickets []models.RawTicket
	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, errors.SourceError(err, "rate limiter")
		}

		issues, resp, err := c.client.Issues.ListByRepo(ctx, q.Owner, q.Repo, opts)
		if err != nil {
			return nil, errors.SourceErrorf(err, "fetch issues %s/%s", q.Owner, q.Repo)
		}

		for _, issue := range issues {
			if issue.IsPullRequest() || issue.ClosedAt == nil {
				continue
			}
			tickets = append(tickets, toRawTicket(q, issue))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	c.logger.WithFields(logrus.Fields{
		"repo":    q.Owner + "/" + q.Repo,
		"tickets": len(tickets),
	}).Info("fetched closed github issues")

	return tickets, nil
}

func toRawTicket(q IssueQuery, issue *github.Issue) models.RawTicket {
	t := models.RawTicket{
		Key:      fmt.Sprintf("%s-%d", q.Key, issue.GetNumber()),
		Created:  issue.GetCreatedAt().Time.UTC().Format(isoDay),
		Resolved: issue.GetClosedAt().Time.UTC().Format(isoDay),
	}
	if q.AffectedLabelPrefix == "" {
		return t
	}
	for _, label := range issue.Labels {
		name := label.GetName()
		if strings.HasPrefix(name, q.AffectedLabelPrefix) {
			if v := strings.TrimSpace(strings.TrimPrefix(name, q.AffectedLabelPrefix)); v != "" {
				t.AffectedVersions = append(t.AffectedVersions, v)
			}
		}
	}
	return t
}

// Tracker binds a client to one repository so it can serve as the release
// and ticket source of a project.
type Tracker struct {
	client *Client
	query  IssueQuery
}

// NewTracker creates a tracker for the repository described by q.
func NewTracker(client *Client, q IssueQuery) *Tracker {
	return &Tracker{client: client, query: q}
}

// GetReleases implements the release source for the bound repository.
func (t *Tracker) GetReleases(ctx context.Context, _ string) ([]models.Version, error) {
	return t.client.FetchReleases(ctx, t.query.Owner, t.query.Repo)
}

// GetResolvedTickets implements the ticket source for the bound repository.
func (t *Tracker) GetResolvedTickets(ctx context.Context, _ string) ([]models.RawTicket, error) {
	return t.client.FetchFixedIssues(ctx, t.query)
}
