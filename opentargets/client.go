// Package opentargets is the knowledge-graph client. It resolves drug and
// disease names through search, fetches full drug and target profiles over
// GraphQL, and caches the profiles in two tiers keyed by canonical entity id.
package opentargets

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/c360/drugscout/errors"
	"github.com/c360/drugscout/httpclient"
	"github.com/c360/drugscout/pkg/cache"
	"github.com/c360/drugscout/storage"
)

// Source is the name this client reports in errors, logs, and metrics.
const Source = "opentargets"

// DefaultEndpoint is the production GraphQL endpoint.
const DefaultEndpoint = "https://api.platform.opentargets.org/api/v4/graphql"

const (
	defaultPageSize = 500

	// diseaseDrugsSize caps the disease knownDrugs collection, which the
	// upstream serves in one response rather than pages.
	diseaseDrugsSize = 200
)

// Config holds the knowledge-graph client settings.
type Config struct {
	// Endpoint is the GraphQL endpoint URL.
	Endpoint string `json:"endpoint"`

	// PageSize is the association page size. The upstream caps the embedded
	// first page at 500; a first page reaching PageSize rows triggers a full
	// paged refetch.
	PageSize int `json:"page_size"`

	// Cache configures both the drug and target profile caches.
	Cache cache.Config `json:"cache"`
}

// DefaultConfig returns the production defaults: the public endpoint,
// 500-row association pages, and five-day caching.
func DefaultConfig() Config {
	return Config{
		Endpoint: DefaultEndpoint,
		PageSize: defaultPageSize,
		Cache:    cache.DefaultConfig(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, Source, "Validate", "endpoint is required")
	}
	if c.PageSize < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, Source, "Validate",
			fmt.Sprintf("page_size cannot be negative, got %d", c.PageSize))
	}
	return c.Cache.Validate()
}

// Client fetches drug and target profiles from the knowledge graph.
// Profiles cache under the "drug" and "target" namespaces so that any drug
// referencing a target shares the target's cached profile. Safe for
// concurrent use.
type Client struct {
	requester httpclient.Requester
	endpoint  string
	pageSize  int
	drugs     *cache.Tiered[DrugProfile]
	targets   *cache.Tiered[TargetProfile]
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

// NewClient creates a knowledge-graph client. The requester handles retry,
// rate limiting, and transport concerns; store is the shared durable cache
// tier and may be nil for memory-only caching.
func NewClient(
	ctx context.Context, requester httpclient.Requester, cfg Config,
	store storage.Store, opts ...Option,
) (*Client, error) {
	if requester == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, Source, "NewClient",
			"requester is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		requester: requester,
		endpoint:  cfg.Endpoint,
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

	drugs, err := cache.NewTiered[DrugProfile](ctx, "drug", cfg.Cache, store, c.logger)
	if err != nil {
		return nil, err
	}
	targets, err := cache.NewTiered[TargetProfile](ctx, "target", cfg.Cache, store, c.logger)
	if err != nil {
		_ = drugs.Close()
		return nil, err
	}
	c.drugs = drugs
	c.targets = targets

	return c, nil
}

// Close shuts down the cache memory tiers. The durable store and requester
// belong to the caller and stay open.
func (c *Client) Close() error {
	return stderrors.Join(c.drugs.Close(), c.targets.Close())
}

// CacheStats returns statistics for the drug and target caches.
func (c *Client) CacheStats() (drugs, targets *cache.Statistics) {
	return c.drugs.Stats(), c.targets.Stats()
}

// GetDrug fetches the drug profile for a name. The name is normalized and
// resolved through search, with the first drug hit authoritative; the
// profile caches under the resolved ChEMBL id, so synonyms and salt forms
// of one compound share an entry.
func (c *Client) GetDrug(ctx context.Context, name string) (DrugProfile, error) {
	chemblID, err := c.resolveDrugName(ctx, name)
	if err != nil {
		return DrugProfile{}, err
	}

	key := c.drugs.Key(map[string]any{"chembl_id": chemblID})
	if profile, ok := c.drugs.Get(ctx, key); ok {
		return profile, nil
	}

	profile, err := c.fetchDrug(ctx, chemblID)
	if err != nil {
		return DrugProfile{}, err
	}
	if err := c.drugs.Set(ctx, key, profile); err != nil {
		c.logger.Warn("Drug cache write failed", "chembl_id", chemblID, "error", err)
	}
	return profile, nil
}

// GetTarget fetches the full target profile for an Ensembl gene id,
// paginating the association collection when it overflows one page.
func (c *Client) GetTarget(ctx context.Context, targetID string) (TargetProfile, error) {
	key := c.targets.Key(map[string]any{"target_id": targetID})
	if profile, ok := c.targets.Get(ctx, key); ok {
		return profile, nil
	}

	profile, err := c.fetchTarget(ctx, targetID)
	if err != nil {
		return TargetProfile{}, err
	}
	if err := c.targets.Set(ctx, key, profile); err != nil {
		c.logger.Warn("Target cache write failed", "target_id", targetID, "error", err)
	}
	return profile, nil
}

// GetDrugWithTargets fetches a drug profile plus the full profile of every
// distinct target it references. Target fetches run concurrently and join
// at one barrier; a single failure fails the whole call.
func (c *Client) GetDrugWithTargets(ctx context.Context, name string) (DrugWithTargets, error) {
	drug, err := c.GetDrug(ctx, name)
	if err != nil {
		return DrugWithTargets{}, err
	}

	ids := drug.TargetIDs()
	targets := make([]TargetProfile, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			profile, err := c.GetTarget(gctx, id)
			if err != nil {
				return err
			}
			targets[i] = profile
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return DrugWithTargets{}, err
	}

	return DrugWithTargets{Drug: drug, Targets: targets}, nil
}

// GetDiseaseDrugs returns every drug in development for a disease across
// all targets and mechanisms, deduplicated to one row per drug with the
// highest-phase entry kept.
func (c *Client) GetDiseaseDrugs(ctx context.Context, diseaseID string) ([]KnownDrug, error) {
	var resp diseaseDrugsResponse
	vars := map[string]any{"id": diseaseID, "size": diseaseDrugsSize}
	if err := c.graphql(ctx, diseaseDrugsQuery, vars, &resp); err != nil {
		return nil, err
	}
	if resp.Disease == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: no disease %q", errors.ErrNoMatch, diseaseID),
			Source, "GetDiseaseDrugs", "disease lookup")
	}

	rows := make([]KnownDrug, 0, len(resp.Disease.KnownDrugs.Rows))
	for _, row := range resp.Disease.KnownDrugs.Rows {
		rows = append(rows, parseKnownDrug(row))
	}
	return dedupeKnownDrugs(rows), nil
}

// GetDiseaseSynonyms resolves a disease name and returns its synonym terms
// grouped by relation, plus parent disease names.
func (c *Client) GetDiseaseSynonyms(ctx context.Context, diseaseName string) (DiseaseSynonyms, error) {
	diseaseID, err := c.resolveDiseaseName(ctx, diseaseName)
	if err != nil {
		return DiseaseSynonyms{}, err
	}

	var resp diseaseSynonymsResponse
	if err := c.graphql(ctx, diseaseSynonymsQuery, map[string]any{"id": diseaseID}, &resp); err != nil {
		return DiseaseSynonyms{}, err
	}
	node := resp.Disease
	if node == nil {
		return DiseaseSynonyms{}, errors.WrapInvalid(
			fmt.Errorf("%w: no disease named %q", errors.ErrNoMatch, diseaseName),
			Source, "GetDiseaseSynonyms", "disease lookup")
	}

	out := DiseaseSynonyms{DiseaseID: node.ID, DiseaseName: node.Name}
	for _, p := range node.Parents {
		out.ParentNames = append(out.ParentNames, p.Name)
	}
	for _, syn := range node.Synonyms {
		switch syn.Relation {
		case "hasExactSynonym":
			out.Exact = append(out.Exact, syn.Terms...)
		case "hasRelatedSynonym":
			out.Related = append(out.Related, syn.Terms...)
		case "hasNarrowSynonym":
			out.Narrow = append(out.Narrow, syn.Terms...)
		case "hasBroadSynonym":
			out.Broad = append(out.Broad, syn.Terms...)
		}
	}
	return out, nil
}

func (c *Client) graphql(ctx context.Context, query string, variables map[string]any, out any) error {
	return c.requester.GraphQLPost(ctx, c.endpoint, query, variables, out)
}

// resolveDrugName searches for a drug by normalized name and returns the
// ChEMBL id of the first drug hit.
func (c *Client) resolveDrugName(ctx context.Context, name string) (string, error) {
	normalized := NormalizeDrugName(name)

	var resp searchResponse
	if err := c.graphql(ctx, drugSearchQuery, map[string]any{"q": normalized}, &resp); err != nil {
		return "", err
	}
	for _, hit := range resp.Search.Hits {
		if hit.Entity == "drug" {
			c.logger.Info("Resolved drug name", "name", name, "chembl_id", hit.ID)
			return hit.ID, nil
		}
	}
	return "", errors.WrapInvalid(
		fmt.Errorf("%w: no drug named %q", errors.ErrNoMatch, name),
		Source, "resolveDrugName", "search")
}

// resolveDiseaseName searches for a disease by name and returns the
// EFO/MONDO id of the first disease hit.
func (c *Client) resolveDiseaseName(ctx context.Context, name string) (string, error) {
	var resp searchResponse
	if err := c.graphql(ctx, diseaseSearchQuery, map[string]any{"q": name}, &resp); err != nil {
		return "", err
	}
	for _, hit := range resp.Search.Hits {
		if hit.Entity == "disease" {
			c.logger.Info("Resolved disease name", "name", name, "disease_id", hit.ID)
			return hit.ID, nil
		}
	}
	return "", errors.WrapInvalid(
		fmt.Errorf("%w: no disease named %q", errors.ErrNoMatch, name),
		Source, "resolveDiseaseName", "search")
}

func (c *Client) fetchDrug(ctx context.Context, chemblID string) (DrugProfile, error) {
	var resp drugResponse
	if err := c.graphql(ctx, drugQuery, map[string]any{"id": chemblID}, &resp); err != nil {
		return DrugProfile{}, err
	}
	if resp.Drug == nil {
		return DrugProfile{}, errors.WrapInvalid(
			fmt.Errorf("%w: no drug for ChEMBL id %q", errors.ErrNoMatch, chemblID),
			Source, "fetchDrug", "drug lookup")
	}
	return parseDrug(*resp.Drug), nil
}

func (c *Client) fetchTarget(ctx context.Context, targetID string) (TargetProfile, error) {
	var resp targetResponse
	if err := c.graphql(ctx, targetQuery, map[string]any{"id": targetID}, &resp); err != nil {
		return TargetProfile{}, err
	}
	if resp.Target == nil {
		return TargetProfile{}, errors.WrapInvalid(
			fmt.Errorf("%w: no target %q", errors.ErrNoMatch, targetID),
			Source, "fetchTarget", "target lookup")
	}
	profile := parseTarget(*resp.Target)

	// A full first page means the association collection may be truncated.
	if len(profile.Associations) >= c.pageSize {
		associations, err := c.fetchAllAssociations(ctx, targetID)
		if err != nil {
			return TargetProfile{}, err
		}
		profile.Associations = associations
	}
	return profile, nil
}

// fetchAllAssociations refetches the association collection page by page
// from index zero until a short page arrives. Pages concatenate in
// page-index order.
func (c *Client) fetchAllAssociations(ctx context.Context, targetID string) ([]Association, error) {
	c.logger.Debug("Paginating target associations", "target_id", targetID, "page_size", c.pageSize)

	var all []Association
	for index := 0; ; index++ {
		var resp associationsPageResponse
		vars := map[string]any{"id": targetID, "index": index, "size": c.pageSize}
		if err := c.graphql(ctx, associationsPageQuery, vars, &resp); err != nil {
			return nil, err
		}
		if resp.Target == nil {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: no target %q", errors.ErrNoMatch, targetID),
				Source, "fetchAllAssociations", "association page")
		}

		rows := resp.Target.AssociatedDiseases.Rows
		all = append(all, parseAssociations(rows)...)
		if len(rows) < c.pageSize {
			return all, nil
		}
	}
}
