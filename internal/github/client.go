package github

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/google/go-github/v57/github"
	"github.com/rohankatakam/collabgraph/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Retry constants
const (
	defaultRetryAttempts = 5
	initialRetryDelay    = 1 * time.Second
	maxRetryDelay        = 2 * time.Minute
)

// Client wraps the GitHub API client with rate limiting and retries
type Client struct {
	client      *github.Client
	rateLimiter *rate.Limiter
	perPage     int
	logger      *logrus.Logger

	retryAttempts uint
	retryDelay    time.Duration
}

// NewClient creates a new GitHub client with rate limiting.
// An empty token makes unauthenticated requests.
func NewClient(token string, rateLimit, perPage int, logger *logrus.Logger) *Client {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	if rateLimit <= 0 {
		rateLimit = 10
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 100
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Client{
		client:        client,
		rateLimiter:   rate.NewLimiter(rate.Limit(rateLimit), 1),
		perPage:       perPage,
		logger:        logger,
		retryAttempts: defaultRetryAttempts,
		retryDelay:    initialRetryDelay,
	}
}

// ListOrgRepos fetches every repository of org, following pagination
func (c *Client) ListOrgRepos(ctx context.Context, org string) ([]models.OrgRepository, error) {
	if org == "" {
		return nil, fmt.Errorf("organization name is required")
	}

	opts := &github.RepositoryListByOrgOptions{
		ListOptions: github.ListOptions{PerPage: c.perPage},
	}

	var all []models.OrgRepository
	for {
		var (
			repos []*github.Repository
			resp  *github.Response
		)
		err := c.withRetry(ctx, "list_org_repos", func() error {
			if err := c.rateLimiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limiter: %w", err)
			}
			var err error
			repos, resp, err = c.client.Repositories.ListByOrg(ctx, org, opts)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("list repositories of %s: %w", org, err)
		}

		for _, repo := range repos {
			all = append(all, convertRepository(repo))
		}

		c.logger.WithFields(logrus.Fields{
			"org":   org,
			"page":  opts.Page,
			"count": len(all),
		}).Debug("fetched repository page")

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

func convertRepository(repo *github.Repository) models.OrgRepository {
	out := models.OrgRepository{
		ID:          repo.GetID(),
		FullName:    repo.GetFullName(),
		Description: repo.GetDescription(),
		HTMLURL:     repo.GetHTMLURL(),
		Forks:       repo.GetForksCount(),
		Stars:       repo.GetStargazersCount(),
	}
	if repo.CreatedAt != nil {
		t := repo.CreatedAt.Time
		out.CreatedAt = &t
	}
	if repo.PushedAt != nil {
		t := repo.PushedAt.Time
		out.PushedAt = &t
	}
	return out
}

// withRetry retries rate limiting, server errors and network failures with backoff
func (c *Client) withRetry(ctx context.Context, operation string, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(c.retryAttempts),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(maxRetryDelay),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(c.retryDelay/4),
		retry.OnRetry(func(n uint, err error) {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"operation": operation,
				"attempt":   n + 1,
			}).Warn("github request failed, retrying")
		}),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
	)
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var rateErr *github.RateLimitError
	if stderrors.As(err, &rateErr) {
		return true
	}
	var abuseErr *github.AbuseRateLimitError
	if stderrors.As(err, &abuseErr) {
		return true
	}
	var respErr *github.ErrorResponse
	if stderrors.As(err, &respErr) {
		return respErr.Response != nil && respErr.Response.StatusCode >= http.StatusInternalServerError
	}
	// Transport failures carry no response
	return true
}
