package normattiva

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/custodia-labs/lexsync/internal/core/domain"
	"github.com/custodia-labs/lexsync/internal/errors"
	"github.com/custodia-labs/lexsync/internal/logger"
)

// Download paths, as recorded in FetchResult.Metadata["path"].
const (
	PathCollection = "collection"
	PathExport     = "export"
	PathDirect     = "direct"
)

// minDirectSize is the smallest direct AKN response accepted.
const minDirectSize = 100

// Document is an AKN document and the path that produced it.
type Document struct {
	XML  []byte
	Path string
	// Entry is the archive member the document was read from, if any.
	Entry string
}

// Download retrieves the AKN document of actID. A configured collection is
// read from its pre-packaged archive; otherwise an asynchronous export is
// run, falling back to the direct single-request download when no export
// job can be created or when the source asks for the direct path. It waits
// for the inter-request interval before the first call.
func (c *Connector) Download(ctx context.Context, actID string) (*Document, error) {
	cfg := c.source.Config
	if err := c.client.Pause(ctx); err != nil {
		return nil, err
	}

	if cfg.Collection != "" {
		return c.downloadCollection(ctx, cfg.Collection, actID)
	}
	if cfg.DirectAKN {
		return c.downloadDirect(ctx, actID)
	}

	ref, ok := parseURN(cfg.URN)
	if !ok {
		logger.Debug("normattiva: %s has no usable URN, using direct download", c.source.ID)
		return c.downloadDirect(ctx, actID)
	}

	job, err := c.submitExport(ctx, ref)
	if errors.Is(err, errNoJob) {
		logger.Warn("normattiva: %s: %v; using direct download", c.source.ID, err)
		if err := c.client.Pause(ctx); err != nil {
			return nil, err
		}
		return c.downloadDirect(ctx, actID)
	}
	if err != nil {
		return nil, err
	}
	if err := c.confirmExport(ctx, job); err != nil {
		return nil, err
	}
	if err := c.awaitExport(ctx, job); err != nil {
		return nil, err
	}
	payload, err := c.fetchExport(ctx, job)
	if err != nil {
		return nil, err
	}

	data, entry, err := exportXML(payload)
	if err != nil {
		return nil, err
	}
	return &Document{XML: data, Path: PathExport, Entry: entry}, nil
}

// zipMagic opens every ZIP local file header.
var zipMagic = []byte("PK\x03\x04")

// exportXML returns the document of an export payload, which is usually
// plain AKN and occasionally a ZIP archive.
func exportXML(payload []byte) ([]byte, string, error) {
	if bytes.HasPrefix(payload, zipMagic) {
		return extractXML(payload, "")
	}
	body := bytes.TrimSpace(payload)
	if len(body) == 0 || body[0] != '<' {
		head := body
		if len(head) > 100 {
			head = head[:100]
		}
		return nil, "", errors.Mark(errors.Newf("normattiva: export is neither XML nor an archive: %q", head), domain.ErrDownloadFailed)
	}
	return body, "", nil
}

func (c *Connector) downloadCollection(ctx context.Context, name, actID string) (*Document, error) {
	q := url.Values{}
	q.Set("nome", name)
	q.Set("formato", "AKN")
	q.Set("formatoRichiesta", "V")

	logger.Debug("normattiva: downloading collection %q", name)
	resp, err := c.client.Get(ctx, c.baseURL+pathCollection+"?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "download collection %q", name)
	}
	if !resp.OK() {
		return nil, errors.Mark(errors.Newf("normattiva: collection %q HTTP %d", name, resp.StatusCode), domain.ErrDownloadFailed)
	}
	logger.Debug("normattiva: collection archive %.1f MB", float64(len(resp.Body))/1024/1024)

	data, entry, err := extractXML(resp.Body, actID)
	if err != nil {
		return nil, err
	}
	return &Document{XML: data, Path: PathCollection, Entry: entry}, nil
}

func (c *Connector) downloadDirect(ctx context.Context, actID string) (*Document, error) {
	if actID == "" {
		return nil, errors.Mark(errors.New("normattiva: direct download needs an act id"), domain.ErrDocumentNotFound)
	}

	q := url.Values{}
	q.Set("codiceRedazionale", actID)
	q.Set("formatoRichiesta", "V")

	resp, err := c.client.Get(ctx, c.baseURL+pathDirectAKN+"?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "direct download %s", actID)
	}
	if !resp.OK() {
		return nil, errors.Mark(errors.Newf("normattiva: direct download HTTP %d for %q", resp.StatusCode, actID), domain.ErrDownloadFailed)
	}

	body := bytes.TrimSpace(resp.Body)
	if len(body) < minDirectSize || body[0] != '<' {
		head := body
		if len(head) > 100 {
			head = head[:100]
		}
		return nil, errors.Mark(errors.Newf("normattiva: direct download is not XML: %q", head), domain.ErrDownloadFailed)
	}
	return &Document{XML: body, Path: PathDirect}, nil
}

// extractXML reads one XML member of a ZIP archive: the one whose name
// contains actID, else the first.
func extractXML(archive []byte, actID string) ([]byte, string, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, "", errors.Mark(errors.Wrap(err, "open archive"), domain.ErrDownloadFailed)
	}

	var candidates []*zip.File
	for _, f := range zr.File {
		if !f.FileInfo().IsDir() && strings.HasSuffix(strings.ToLower(f.Name), ".xml") {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return nil, "", errors.Mark(errors.New("normattiva: no XML file in archive"), domain.ErrDocumentNotFound)
	}

	target := candidates[0]
	if actID != "" {
		found := false
		for _, f := range candidates {
			if strings.Contains(f.Name, actID) {
				target, found = f, true
				break
			}
		}
		if !found {
			logger.Warn("normattiva: %s not in archive, using %s", actID, target.Name)
		}
	}

	rc, err := target.Open()
	if err != nil {
		return nil, "", errors.Wrapf(err, "open %s", target.Name)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, "", errors.Wrapf(err, "read %s", target.Name)
	}
	logger.Debug("normattiva: parsing %s (%d KB)", target.Name, len(data)/1024)
	return data, target.Name, nil
}
