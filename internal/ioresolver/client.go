// Package ioresolver implements the remote taxonomy API client and
// the taxtag.Resolver contract on top of it. This is an impure I/O
// package: it talks HTTP and reads/writes the local store.
package ioresolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gnames/gnfmt"
	"github.com/gnames/taxtag/pkg/config"
	"github.com/gnames/taxtag/pkg/errcode"
	"github.com/gnames/taxtag/pkg/taxon"
	"github.com/gnames/taxtag/pkg/taxtag"
)

// client implements taxtag.APIClient against an iNaturalist-style
// REST API. Transient failures (network errors, 5xx, 429) are retried
// with exponential backoff; retry parameters come from config.
type client struct {
	cfg  *config.APIConfig
	http *http.Client
	enc  gnfmt.Encoder
}

// NewClient creates a remote API client. Config files bypass option
// validation, so the attempt count is clamped here: zero attempts
// would skip the request entirely.
func NewClient(cfg *config.APIConfig) taxtag.APIClient {
	c := *cfg
	if c.RetryAttempts < 1 {
		c.RetryAttempts = 1
	}
	return &client{
		cfg:  &c,
		http: &http.Client{Timeout: c.Timeout},
		enc:  gnfmt.GNjson{},
	}
}

// Wire representations. The remote service wraps every payload in a
// results envelope.

type taxonResult struct {
	ID                  int64         `json:"id"`
	Name                string        `json:"name"`
	Rank                string        `json:"rank"`
	PreferredCommonName string        `json:"preferred_common_name"`
	ParentID            *int64        `json:"parent_id"`
	AncestorIDs         []int64       `json:"ancestor_ids"`
	ChildIDs            []int64       `json:"child_ids"`
	IconicTaxonID       int64         `json:"iconic_taxon_id"`
	ObservationsCount   *int64        `json:"observations_count"`
	LeafTaxaCount       *int64        `json:"complete_species_count"`
	Ancestors           []taxonResult `json:"ancestors"`
}

type taxaEnvelope struct {
	TotalResults int           `json:"total_results"`
	Results      []taxonResult `json:"results"`
}

type observationResult struct {
	ID    int64 `json:"id"`
	Taxon *struct {
		ID int64 `json:"id"`
	} `json:"taxon"`
	ObservedOnString   string `json:"observed_on_string"`
	TimeObservedAt     string `json:"time_observed_at"`
	PlaceGuess         string `json:"place_guess"`
	Location           string `json:"location"`
	PositionalAccuracy *int64 `json:"positional_accuracy"`
	Description        string `json:"description"`
	LicenseCode        string `json:"license_code"`
	UpdatedAt          string `json:"updated_at"`
	User               *struct {
		Login string `json:"login"`
		Name  string `json:"name"`
	} `json:"user"`
	Identifications []struct {
		User *struct {
			Login string `json:"login"`
			Name  string `json:"name"`
		} `json:"user"`
	} `json:"identifications"`
	Photos []struct {
		URL string `json:"url"`
	} `json:"photos"`
}

type obsEnvelope struct {
	TotalResults int                 `json:"total_results"`
	Results      []observationResult `json:"results"`
}

// TaxonByID fetches one taxon; the response embeds the full ancestor
// list, which is returned as the second value.
func (c *client) TaxonByID(
	ctx context.Context,
	id int64,
) (*taxon.Taxon, []*taxon.Taxon, error) {
	u := fmt.Sprintf("%s/taxa/%d", c.cfg.BaseURL, id)

	var env taxaEnvelope
	if err := c.getJSON(ctx, u, &env); err != nil {
		return nil, nil, err
	}
	if len(env.Results) == 0 {
		return nil, nil, TaxonNotFoundError(id)
	}

	res := env.Results[0]
	t, err := res.toTaxon()
	if err != nil {
		return nil, nil, DecodeError(u, err)
	}

	ancestors := make([]*taxon.Taxon, 0, len(res.Ancestors))
	for _, a := range res.Ancestors {
		at, err := a.toTaxon()
		if err != nil {
			slog.Warn("Skipping malformed ancestor record",
				"taxon", id, "ancestor", a.ID, "error", err)
			continue
		}
		ancestors = append(ancestors, at)
	}
	return t, ancestors, nil
}

// ObservationByID fetches one observation record.
func (c *client) ObservationByID(
	ctx context.Context,
	id int64,
) (*taxon.Observation, error) {
	u := fmt.Sprintf("%s/observations/%d", c.cfg.BaseURL, id)

	var env obsEnvelope
	if err := c.getJSON(ctx, u, &env); err != nil {
		return nil, err
	}
	if len(env.Results) == 0 {
		return nil, ObservationNotFoundError(id)
	}

	res := env.Results[0]
	if res.Taxon == nil || res.Taxon.ID == 0 {
		return nil, ObservationNotFoundError(id)
	}
	return res.toObservation(), nil
}

// SearchTaxa performs a remote name autocomplete query.
func (c *client) SearchTaxa(
	ctx context.Context,
	q string,
	limit int,
) ([]*taxon.Taxon, error) {
	if limit <= 0 {
		limit = 10
	}
	u := fmt.Sprintf("%s/taxa/autocomplete?q=%s&per_page=%d",
		c.cfg.BaseURL, url.QueryEscape(q), limit)

	var env taxaEnvelope
	if err := c.getJSON(ctx, u, &env); err != nil {
		return nil, err
	}

	res := make([]*taxon.Taxon, 0, len(env.Results))
	for _, r := range env.Results {
		t, err := r.toTaxon()
		if err != nil {
			continue
		}
		res = append(res, t)
	}
	return res, nil
}

// getJSON performs a GET with bounded retry and exponential backoff.
// 404 is terminal and maps to an empty envelope handled by callers;
// other non-2xx statuses and transport errors are retried.
func (c *client) getJSON(ctx context.Context, u string, out any) error {
	var lastErr error
	delay := c.cfg.RetryDelay

	for attempt := 1; attempt <= c.cfg.RetryAttempts; attempt++ {
		if attempt > 1 {
			slog.Debug("Retrying remote fetch",
				"url", u, "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return RequestError(u, ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}

		err := c.getJSONOnce(ctx, u, out)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
	}
	return RetriesExhaustedError(u, c.cfg.RetryAttempts, lastErr)
}

func (c *client) getJSONOnce(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return RequestError(u, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return RequestError(u, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// The service answers 404 for ids that never existed; ids
		// that were deleted come back as empty result sets. Both are
		// "not found" to callers.
		return nil
	case resp.StatusCode != http.StatusOK:
		return StatusError(u, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return RequestError(u, err)
	}
	if err = c.enc.Decode(body, out); err != nil {
		return DecodeError(u, err)
	}
	return nil
}

// retryable reports whether an error is worth another attempt:
// transport failures and 5xx/429 statuses are, other statuses and
// decode failures are not.
func retryable(err error) bool {
	switch errcode.Code(err) {
	case errcode.RemoteRequestError:
		return true
	case errcode.RemoteStatusError:
		var serr *httpStatusError
		if errors.As(err, &serr) {
			return serr.status >= 500 ||
				serr.status == http.StatusTooManyRequests
		}
	}
	return false
}

func (r taxonResult) toTaxon() (*taxon.Taxon, error) {
	rank, err := taxon.ParseRank(r.Rank)
	if err != nil {
		return nil, err
	}
	t := &taxon.Taxon{
		ID:                  r.ID,
		Name:                r.Name,
		Rank:                rank,
		PreferredCommonName: r.PreferredCommonName,
		ParentID:            r.ParentID,
		AncestorIDs:         r.AncestorIDs,
		ChildIDs:            r.ChildIDs,
		IconicTaxonID:       r.IconicTaxonID,
		ObservationCount:    r.ObservationsCount,
		LeafCount:           r.LeafTaxaCount,
	}
	if err = t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (r observationResult) toObservation() *taxon.Observation {
	obs := &taxon.Observation{
		ID:      r.ID,
		TaxonID: r.Taxon.ID,
	}

	obs.SetDwC(taxon.TermCatalogNumber, strconv.FormatInt(r.ID, 10))
	obs.SetDwC(taxon.TermEventDate, firstNonEmpty(r.TimeObservedAt, r.ObservedOnString))
	obs.SetDwC(taxon.TermLocality, r.PlaceGuess)
	obs.SetDwC(taxon.TermModified, r.UpdatedAt)
	obs.SetDwC(taxon.TermLicense, r.LicenseCode)
	obs.SetDwC(taxon.TermBasisOfRecord, "HumanObservation")

	if r.User != nil {
		obs.SetDwC(taxon.TermRecordedBy, firstNonEmpty(r.User.Name, r.User.Login))
	}
	if len(r.Identifications) > 0 && r.Identifications[0].User != nil {
		u := r.Identifications[0].User
		obs.SetDwC(taxon.TermIdentifiedBy, firstNonEmpty(u.Name, u.Login))
	}

	// Location arrives as "lat,lon".
	if lat, lon, ok := splitLocation(r.Location); ok {
		obs.SetDwC(taxon.TermDecimalLatitude, lat)
		obs.SetDwC(taxon.TermDecimalLongitude, lon)
	}

	for _, p := range r.Photos {
		if p.URL != "" {
			obs.PhotoURLs = append(obs.PhotoURLs, p.URL)
		}
	}
	return obs
}

func splitLocation(s string) (lat, lon string, ok bool) {
	for i := range s {
		if s[i] == ',' {
			return s[:i], s[i+1:], i > 0 && i < len(s)-1
		}
	}
	return "", "", false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
