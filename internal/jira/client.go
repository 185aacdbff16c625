// Package jira reads releases and fixed tickets from a Jira server's REST API.
package jira

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/rohankatakam/defectset/internal/cache"
	"github.com/rohankatakam/defectset/internal/errors"
	"github.com/rohankatakam/defectset/internal/models"
)

const (
	cacheBucket = "jira"
	dateLayout  = "2006-01-02"
)

// fixedTicketsJQL selects closed or resolved tickets whose resolution is "Fixed".
const fixedTicketsJQL = `project=%q AND (status=closed OR status=resolved) AND resolution=fixed ORDER BY key ASC`

// Client wraps the Jira REST API with rate limiting and a response cache
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	cache       *cache.Manager
	pageSize    int
	logger      *logrus.Logger
}

// NewClient creates a Jira client. A nil cache disables caching.
func NewClient(baseURL string, pageSize int, rateLimit float64, c *cache.Manager, logger *logrus.Logger) *Client {
	if pageSize <= 0 {
		pageSize = 1000
	}
	limit := rate.Inf
	if rateLimit > 0 {
		limit = rate.Limit(rateLimit)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		rateLimiter: rate.NewLimiter(limit, 1),
		cache:       c,
		pageSize:    pageSize,
		logger:      logger,
	}
}

// GetReleases returns every project version that carries a release date.
func (c *Client) GetReleases(ctx context.Context, projectKey string) ([]models.Version, error) {
	endpoint := fmt.Sprintf("%s/rest/api/2/project/%s", c.baseURL, url.PathEscape(projectKey))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var versions []models.Version
	gjson.GetBytes(body, "versions").ForEach(func(_, v gjson.Result) bool {
		released := v.Get("releaseDate")
		if !released.Exists() {
			return true
		}
		name := v.Get("name").String()
		date, err := time.Parse(dateLayout, released.String())
		if err != nil {
			c.logger.WithFields(logrus.Fields{
				"project": projectKey,
				"version": name,
				"date":    released.String(),
			}).Warn("skipping version with malformed release date")
			return true
		}
		versions = append(versions, models.Version{Name: name, Date: date})
		return true
	})

	c.logger.WithFields(logrus.Fields{
		"project":  projectKey,
		"versions": len(versions),
	}).Debug("fetched jira versions")

	return versions, nil
}

// GetResolvedTickets pages through every fixed ticket of the project.
// Affected versions without a release date are left out.
func (c *Client) GetResolvedTickets(ctx context.Context, projectKey string) ([]models.RawTicket, error) {
	jql := fmt.Sprintf(fixedTicketsJQL, projectKey)

	var tickets []models.RawTicket
	for startAt := 0; ; {
		q := url.Values{}
		q.Set("jql", jql)
		q.Set("fields", "key,resolutiondate,versions,created")
		q.Set("startAt", strconv.Itoa(startAt))
		q.Set("maxResults", strconv.Itoa(c.pageSize))
		endpoint := c.baseURL + "/rest/api/2/search?" + q.Encode()

		body, err := c.get(ctx, endpoint)
		if err != nil {
			return nil, err
		}

		issues := gjson.GetBytes(body, "issues").Array()
		for _, issue := range issues {
			tickets = append(tickets, parseIssue(issue))
		}

		total := int(gjson.GetBytes(body, "total").Int())
		startAt += len(issues)
		if len(issues) == 0 || startAt >= total {
			break
		}
	}

	c.logger.WithFields(logrus.Fields{
		"project": projectKey,
		"tickets": len(tickets),
	}).Info("fetched fixed jira tickets")

	return tickets, nil
}

func parseIssue(issue gjson.Result) models.RawTicket {
	fields := issue.Get("fields")
	t := models.RawTicket{
		Key:      issue.Get("key").String(),
		Created:  fields.Get("created").String(),
		Resolved: fields.Get("resolutiondate").String(),
	}
	fields.Get("versions").ForEach(func(_, v gjson.Result) bool {
		if v.Get("releaseDate").Exists() {
			t.AffectedVersions = append(t.AffectedVersions, v.Get("name").String())
		}
		return true
	})
	return t
}

// get fetches endpoint, consulting the cache first.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	if body, ok := c.cache.Get(cacheBucket, endpoint); ok {
		return body, nil
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, errors.SourceError(err, "rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.SourceError(err, "build jira request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.SourceErrorf(err, "jira request %s", endpoint)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.SourceErrorf(err, "read jira response %s", endpoint)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.SourceErrorf(fmt.Errorf("status %d", resp.StatusCode), "jira request %s", endpoint).
			WithContext("status", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.SourceErrorf(fmt.Errorf("invalid JSON"), "jira response %s", endpoint)
	}

	if err := c.cache.Set(cacheBucket, endpoint, body); err != nil {
		c.logger.WithError(err).Warn("failed to cache jira response")
	}
	return body, nil
}
