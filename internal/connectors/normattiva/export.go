package normattiva

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/custodia-labs/lexsync/internal/core/domain"
	"github.com/custodia-labs/lexsync/internal/errors"
	"github.com/custodia-labs/lexsync/internal/logger"
)

// minTokenLength rejects the short error strings the API returns in place
// of a job token.
const minTokenLength = 10

// minArchiveSize is the smallest export payload that can hold a document.
const minArchiveSize = 100

// exportState is the position of an asynchronous export job.
type exportState int

const (
	exportSubmitted exportState = iota
	exportConfirmed
	exportReady
)

func (s exportState) String() string {
	switch s {
	case exportSubmitted:
		return "submitted"
	case exportConfirmed:
		return "confirmed"
	case exportReady:
		return "ready"
	default:
		return "unknown"
	}
}

// exportJob is an asynchronous export moving submitted → confirmed → ready.
type exportJob struct {
	token       string
	state       exportState
	downloadURL string
}

// errNoJob means the export could not be submitted; the caller falls back
// to the direct download.
var errNoJob = errors.New("normattiva: export job not created")

// submitExport asks the API to prepare the act as an AKN archive.
func (c *Connector) submitExport(ctx context.Context, ref actRef) (*exportJob, error) {
	code, ok := actTypeCodes[ref.Type]
	if !ok {
		return nil, errors.Wrapf(errNoJob, "act type %q has no API code", ref.Type)
	}

	body, err := json.Marshal(exportRequest{
		Format:     "AKN",
		SearchType: "A",
		Export:     "V",
		Params:     exportParams{TypeCode: code, Number: ref.Number, Year: ref.Year},
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal export request")
	}

	resp, err := c.client.Do(ctx, http.MethodPost, c.baseURL+pathExportSubmit, body,
		http.Header{"Content-Type": {"application/json"}})
	if err != nil {
		return nil, errors.Wrapf(errNoJob, "submit: %v", err)
	}

	token := strings.Trim(strings.TrimSpace(string(resp.Body)), `"`)
	if !resp.OK() || len(token) < minTokenLength {
		return nil, errors.Wrapf(errNoJob, "invalid token %q (HTTP %d)", token, resp.StatusCode)
	}

	logger.Debug("normattiva: export token %s", token)
	return &exportJob{
		token:       token,
		state:       exportSubmitted,
		downloadURL: c.baseURL + pathExportDownload + token,
	}, nil
}

// confirmExport moves a submitted job to confirmed.
func (c *Connector) confirmExport(ctx context.Context, job *exportJob) error {
	if job.state != exportSubmitted {
		return errors.Newf("normattiva: confirm in state %s", job.state)
	}
	if err := c.client.Pause(ctx); err != nil {
		return err
	}
	if err := c.client.PutJSON(ctx, c.baseURL+pathExportConfirm, confirmRequest{Token: job.token}, nil); err != nil {
		return errors.Wrap(err, "confirm export")
	}
	job.state = exportConfirmed
	return nil
}

// awaitExport polls until the job is ready. A 303 carries the download
// location; stato 3 means done and stato 4 means the job failed.
func (c *Connector) awaitExport(ctx context.Context, job *exportJob) error {
	if job.state != exportConfirmed {
		return errors.Newf("normattiva: poll in state %s", job.state)
	}
	if err := c.client.Pause(ctx); err != nil {
		return err
	}

	statusURL := c.baseURL + pathExportStatus + job.token
	poller := c.client.WithoutRedirects()
	for i := 0; i < c.pollAttempts; i++ {
		if i > 0 {
			if err := c.sleep(ctx, c.pollInterval); err != nil {
				return err
			}
		}

		resp, err := poller.Get(ctx, statusURL, nil)
		if err != nil {
			return errors.Wrap(err, "check export status")
		}

		if resp.StatusCode == http.StatusSeeOther {
			if loc := resp.Header.Get("Location"); loc != "" {
				job.downloadURL = c.resolve(loc)
			}
			job.state = exportReady
			return nil
		}
		if !resp.OK() {
			continue
		}

		var status exportStatus
		if err := json.Unmarshal(resp.Body, &status); err != nil {
			logger.Debug("normattiva: unreadable export status: %v", err)
			continue
		}
		logger.Debug("normattiva: export %s: stato %d (%s) %d%%", job.token, status.State, status.Description, status.Percent)

		switch status.State {
		case exportStateDone:
			job.state = exportReady
			return nil
		case exportStateFailed:
			return errors.Mark(errors.Newf("normattiva: export failed: %s", status.Description), domain.ErrDownloadFailed)
		}
	}
	return errors.Mark(errors.Newf("normattiva: export not ready after %d polls", c.pollAttempts), domain.ErrDownloadFailed)
}

// fetchExport downloads the payload of a ready job.
func (c *Connector) fetchExport(ctx context.Context, job *exportJob) ([]byte, error) {
	if job.state != exportReady {
		return nil, errors.Newf("normattiva: download in state %s", job.state)
	}
	if err := c.client.Pause(ctx); err != nil {
		return nil, err
	}
	resp, err := c.client.Get(ctx, job.downloadURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "download export")
	}
	if !resp.OK() {
		return nil, errors.Mark(errors.Newf("normattiva: export download HTTP %d", resp.StatusCode), domain.ErrDownloadFailed)
	}
	if len(resp.Body) < minArchiveSize {
		return nil, errors.Mark(errors.Newf("normattiva: export too small (%d bytes), probably empty", len(resp.Body)), domain.ErrDownloadFailed)
	}
	return resp.Body, nil
}

// resolve turns a Location header into an absolute URL.
func (c *Connector) resolve(loc string) string {
	if strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://") {
		return loc
	}
	return c.baseURL + loc
}
