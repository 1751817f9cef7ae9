// Package ctgov is the trial-registry aggregator. It searches the
// ClinicalTrials.gov v2 study index and condenses results into
// whitespace, competitive-landscape, and termination views. Calls hold
// no cross-call state; every view is a pure function of its inputs and
// the live registry content.
package ctgov

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/drugscout/errors"
	"github.com/c360/drugscout/httpclient"
)

// Source is the name this client reports in errors, logs, and metrics.
const Source = "ctgov"

// DefaultBaseURL is the production v2 study search endpoint.
const DefaultBaseURL = "https://clinicaltrials.gov/api/v2/studies"

const (
	// defaultPageSize is the registry's per-page record cap.
	defaultPageSize = 100

	// defaultSearchLimit caps SearchTrials when the query sets no limit.
	defaultSearchLimit = 200

	// defaultTopN caps the competitor lists of the whitespace and
	// landscape views.
	defaultTopN = 50

	// defaultTerminatedLimit caps GetTerminated result sets.
	defaultTerminatedLimit = 100

	// whitespaceExactLimit bounds the exact-match fetch in whitespace
	// detection.
	whitespaceExactLimit = 50

	// whitespaceCandidateLimit bounds the competitor fetch behind a
	// whitespace verdict.
	whitespaceCandidateLimit = 500

	// recentStartYear is the cutoff for the landscape's recent-activity
	// list.
	recentStartYear = 2024
)

// Phase filters in the registry's AREA[Phase] clause syntax. Late stage
// leaves out Phase 1, whose signal is too noisy for competitor lists.
const (
	lateStagePhases = "(PHASE2 OR PHASE3 OR PHASE4)"
	allPhases       = "(EARLY_PHASE1 OR PHASE1 OR PHASE2 OR PHASE3 OR PHASE4)"
)

// stoppedStatuses filters searches to trials that ended early.
const stoppedStatuses = "TERMINATED,WITHDRAWN,SUSPENDED"

// Config holds the trial-registry client settings.
type Config struct {
	// BaseURL is the study search endpoint URL.
	BaseURL string `json:"base_url"`

	// PageSize is the records-per-page cap. The registry serves at most
	// 100 records per page; larger result sets paginate through a
	// continuation token.
	PageSize int `json:"page_size"`
}

// DefaultConfig returns the production defaults: the public endpoint and
// full 100-record pages.
func DefaultConfig() Config {
	return Config{BaseURL: DefaultBaseURL, PageSize: defaultPageSize}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, Source, "Validate", "base_url is required")
	}
	if c.PageSize < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, Source, "Validate",
			fmt.Sprintf("page_size cannot be negative, got %d", c.PageSize))
	}
	return nil
}

// Client is the trial-registry aggregator. Safe for concurrent use.
type Client struct {
	requester httpclient.Requester
	baseURL   string
	pageSize  int
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a trial-registry client. The requester handles
// retry, rate limiting, and transport concerns.
func NewClient(requester httpclient.Requester, cfg Config, opts ...Option) (*Client, error) {
	if requester == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, Source, "NewClient",
			"requester is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		requester: requester,
		baseURL:   cfg.BaseURL,
		pageSize:  cfg.PageSize,
		logger:    slog.Default(),
	}
	if c.pageSize == 0 {
		c.pageSize = defaultPageSize
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("source", Source)

	return c, nil
}

// SearchTrials returns trials matching the query, following continuation
// tokens until MaxResults records accumulate or the registry runs out.
// Zero matches is a normal empty result, not an error.
func (c *Client) SearchTrials(ctx context.Context, q SearchQuery) ([]Trial, error) {
	limit := q.MaxResults
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	trials, err := c.fetchPages(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Trial search complete",
		"drug", q.Drug, "condition", q.Condition, "count", len(trials))
	return trials, nil
}

// CountTrials returns how many trials match the query without fetching
// them: one single-record page carrying the registry's total counter.
// MaxResults is ignored.
func (c *Client) CountTrials(ctx context.Context, q SearchQuery) (int, error) {
	var resp searchResponse
	if err := c.requester.Get(ctx, c.searchURL(q.params(1, "")), &resp); err != nil {
		return 0, err
	}
	return resp.TotalCount, nil
}

// DetectWhitespace reports whether a drug-condition pair is untried in
// the registry. The exact-match search and the two single-axis counts
// run concurrently. Only a whitespace verdict triggers the fourth,
// sequential fetch that fills ConditionDrugs with late-stage competitor
// drugs for the condition.
func (c *Client) DetectWhitespace(ctx context.Context, drug, condition string, dateBefore time.Time) (WhitespaceResult, error) {
	var (
		exact         []Trial
		drugOnly      int
		conditionOnly int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		exact, err = c.SearchTrials(gctx, SearchQuery{
			Drug:       drug,
			Condition:  condition,
			DateBefore: dateBefore,
			MaxResults: whitespaceExactLimit,
		})
		return err
	})
	g.Go(func() error {
		var err error
		drugOnly, err = c.CountTrials(gctx, SearchQuery{Drug: drug, DateBefore: dateBefore})
		return err
	})
	g.Go(func() error {
		var err error
		conditionOnly, err = c.CountTrials(gctx, SearchQuery{Condition: condition, DateBefore: dateBefore})
		return err
	})
	if err := g.Wait(); err != nil {
		return WhitespaceResult{}, err
	}

	result := WhitespaceResult{
		IsWhitespace:        len(exact) == 0,
		ExactMatchCount:     len(exact),
		DrugOnlyTrials:      drugOnly,
		ConditionOnlyTrials: conditionOnly,
	}

	if result.IsWhitespace {
		trials, err := c.fetchPages(ctx, SearchQuery{
			Condition:   condition,
			DateBefore:  dateBefore,
			PhaseFilter: lateStagePhases,
		}, whitespaceCandidateLimit)
		if err != nil {
			return WhitespaceResult{}, err
		}
		result.ConditionDrugs = conditionCompetitors(trials, defaultTopN)
	}

	c.logger.Info("Whitespace detection complete",
		"drug", drug, "condition", condition,
		"is_whitespace", result.IsWhitespace,
		"exact_matches", result.ExactMatchCount,
		"condition_drugs", len(result.ConditionDrugs))
	return result, nil
}

// GetLandscape assembles the competitive landscape for a condition:
// every phase-tagged trial, grouped by sponsor and drug, ranked by
// maturity then scale. topN <= 0 keeps the default 50 groups.
func (c *Client) GetLandscape(ctx context.Context, condition string, dateBefore time.Time, topN int) (ConditionLandscape, error) {
	if topN <= 0 {
		topN = defaultTopN
	}

	trials, err := c.fetchPages(ctx, SearchQuery{
		Condition:   condition,
		DateBefore:  dateBefore,
		PhaseFilter: allPhases,
	}, 0)
	if err != nil {
		return ConditionLandscape{}, err
	}

	landscape := aggregateLandscape(trials, topN)
	c.logger.Info("Landscape assembled",
		"condition", condition,
		"trials", landscape.TotalTrialCount,
		"competitors", len(landscape.Competitors),
		"recent_starts", len(landscape.RecentStarts))
	return landscape, nil
}

// GetTerminated returns terminated, withdrawn, and suspended trials
// matching the free-text query (a drug name, drug class, or condition),
// each with its stop reason classified. maxResults <= 0 keeps the
// default 100.
func (c *Client) GetTerminated(ctx context.Context, query string, dateBefore time.Time, maxResults int) ([]TerminatedTrial, error) {
	if maxResults <= 0 {
		maxResults = defaultTerminatedLimit
	}

	trials, err := c.fetchPages(ctx, SearchQuery{
		Term:         query,
		DateBefore:   dateBefore,
		StatusFilter: stoppedStatuses,
	}, maxResults)
	if err != nil {
		return nil, err
	}

	terminated := make([]TerminatedTrial, 0, len(trials))
	for _, t := range trials {
		terminated = append(terminated, TerminatedTrial{
			Trial:        t,
			StopCategory: ClassifyStopReason(t.WhyStopped),
		})
	}
	c.logger.Debug("Terminated trials fetched", "query", query, "count", len(terminated))
	return terminated, nil
}

// fetchPages walks the continuation token until limit trials parse, the
// token runs out, or a page comes back short. limit <= 0 fetches until
// the registry is exhausted.
func (c *Client) fetchPages(ctx context.Context, q SearchQuery, limit int) ([]Trial, error) {
	var trials []Trial
	token := ""
	for limit <= 0 || len(trials) < limit {
		var resp searchResponse
		if err := c.requester.Get(ctx, c.searchURL(q.params(c.pageSize, token)), &resp); err != nil {
			return nil, err
		}
		for _, s := range resp.Studies {
			trials = append(trials, parseTrial(s))
		}
		token = resp.NextPageToken
		if token == "" || len(resp.Studies) < c.pageSize {
			break
		}
	}
	if limit > 0 && len(trials) > limit {
		trials = trials[:limit]
	}
	return trials, nil
}

func (c *Client) searchURL(params url.Values) string {
	return c.baseURL + "?" + params.Encode()
}
