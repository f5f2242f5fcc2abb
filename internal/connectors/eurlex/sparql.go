package eurlex

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/lexsync/internal/errors"
)

const cdmPrefix = "PREFIX cdm: <http://publications.europa.eu/ontology/cdm#>"

// sparqlResults is the application/sparql-results+json envelope.
type sparqlResults struct {
	Results struct {
		Bindings []map[string]struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"bindings"`
	} `json:"results"`
}

// first returns the value of variable in the first binding.
func (r sparqlResults) first(variable string) string {
	if len(r.Results.Bindings) == 0 {
		return ""
	}
	return r.Results.Bindings[0][variable].Value
}

// literal escapes s for use inside a double-quoted SPARQL string.
func literal(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`).Replace(s)
}

// workQuery selects the Cellar work of a CELEX id. The match is on the
// string value so that datatype differences do not hide the work.
func workQuery(celex string) string {
	return cdmPrefix + `
SELECT ?work WHERE {
  ?work cdm:resource_legal_id_celex ?celex .
  FILTER(STR(?celex) = "` + literal(celex) + `")
}
LIMIT 1`
}

// dateQuery selects the document date of a CELEX id.
func dateQuery(celex string) string {
	return cdmPrefix + `
SELECT ?date WHERE {
  ?work cdm:resource_legal_id_celex ?celex .
  FILTER(STR(?celex) = "` + literal(celex) + `")
  ?work cdm:work_date_document ?date .
}
LIMIT 1`
}

func (c *Connector) sparql(ctx context.Context, query string) (sparqlResults, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("format", "application/sparql-results+json")

	if err := c.client.Pause(ctx); err != nil {
		return sparqlResults{}, err
	}
	var res sparqlResults
	if err := c.client.GetJSON(ctx, c.sparqlEndpoint+"?"+q.Encode(), &res); err != nil {
		return sparqlResults{}, errors.Wrap(err, "sparql")
	}
	return res, nil
}

// workURI resolves the Cellar URI of the source's CELEX id. An empty result
// means the id is unknown.
func (c *Connector) workURI(ctx context.Context) (string, error) {
	key := "eurlex:" + c.source.ID
	if c.cache != nil {
		if uri, ok := c.cache.Get(key); ok {
			return uri, nil
		}
	}

	res, err := c.sparql(ctx, workQuery(c.source.Config.CelexID))
	if err != nil {
		return "", err
	}
	uri := res.first("work")
	if uri != "" && c.cache != nil {
		c.cache.Add(key, uri)
	}
	return uri, nil
}

// documentDate returns the work's document date, or the zero time when it
// cannot be determined.
func (c *Connector) documentDate(ctx context.Context) time.Time {
	res, err := c.sparql(ctx, dateQuery(c.source.Config.CelexID))
	if err != nil {
		return time.Time{}
	}
	raw := res.first("date")
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02Z07:00"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
