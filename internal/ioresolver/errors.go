package ioresolver

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/taxtag/pkg/errcode"
)

// RequestError is returned when an HTTP request cannot be performed.
func RequestError(url string, err error) error {
	return &gn.Error{
		Code: errcode.RemoteRequestError,
		Msg:  "Could not reach the taxonomy service",
		Err:  fmt.Errorf("request %s: %w", url, err),
	}
}

// httpStatusError carries the HTTP status so the retry loop can tell
// transient statuses from terminal ones.
type httpStatusError struct {
	url    string
	status int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("request %s: status %d", e.url, e.status)
}

// StatusError is returned on an unexpected HTTP status.
func StatusError(url string, status int) error {
	return &gn.Error{
		Code: errcode.RemoteStatusError,
		Msg:  "Taxonomy service returned status %d",
		Vars: []any{status},
		Err:  &httpStatusError{url: url, status: status},
	}
}

// DecodeError is returned when a response body cannot be decoded.
func DecodeError(url string, err error) error {
	return &gn.Error{
		Code: errcode.RemoteDecodeError,
		Msg:  "Taxonomy service returned an unreadable response",
		Err:  fmt.Errorf("decode %s: %w", url, err),
	}
}

// RetriesExhaustedError wraps the last failure after bounded retries.
func RetriesExhaustedError(url string, attempts int, err error) error {
	msg := `Taxonomy service unavailable after %d attempts

<em>How to proceed:</em>
  - check network connectivity
  - previously cached taxonomy data is still usable offline`

	return &gn.Error{
		Code: errcode.RemoteRetriesExhaustedError,
		Msg:  msg,
		Vars: []any{attempts},
		Err:  fmt.Errorf("retries exhausted for %s: %w", url, err),
	}
}

// ChainGapError is returned when repeated fetches could not close the
// gaps of an ancestor chain.
func ChainGapError(taxonID int64, missing []int64) error {
	return &gn.Error{
		Code: errcode.RemoteRetriesExhaustedError,
		Msg:  "Ancestor chain of taxon %d has unresolvable gaps",
		Vars: []any{taxonID},
		Err: fmt.Errorf("taxon %d: ancestors %v not available locally or remotely",
			taxonID, missing),
	}
}

// TaxonNotFoundError is returned when a taxon does not exist remotely.
func TaxonNotFoundError(id int64) error {
	return &gn.Error{
		Code: errcode.TaxonNotFoundError,
		Msg:  "Taxon %d does not exist",
		Vars: []any{id},
		Err:  fmt.Errorf("taxon %d not found remotely", id),
	}
}

// ObservationNotFoundError is returned when an observation does not
// exist remotely, or no longer has an identified taxon.
func ObservationNotFoundError(id int64) error {
	return &gn.Error{
		Code: errcode.ObservationNotFoundError,
		Msg:  "Observation %d does not exist or has no identified taxon",
		Vars: []any{id},
		Err:  fmt.Errorf("observation %d not found remotely", id),
	}
}
