package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexsync/internal/connectors/eurlex"
	"github.com/custodia-labs/lexsync/internal/connectors/normattiva"
	"github.com/custodia-labs/lexsync/internal/core/domain"
	"github.com/custodia-labs/lexsync/internal/core/ports/driven"
)

func TestPluginRegistry_EmptyResolution(t *testing.T) {
	r := NewPluginRegistry()

	_, err := r.ResolveConnector(domain.DataSource{ID: "x", Connector: "gazzetta"})
	require.Error(t, err)
	assert.Equal(t, `no connector registered for "gazzetta" (available: (none))`, err.Error())
	assert.True(t, errors.Is(err, domain.ErrNotRegistered))

	var resErr *domain.ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, PluginConnector, resErr.Kind)
	assert.Equal(t, "gazzetta", resErr.Key)
}

func TestPluginRegistry_ResolutionListsKnownKeys(t *testing.T) {
	r := NewPluginRegistry()
	RegisterDefaults(r, DefaultPlugins{})

	_, err := r.ResolveConnector(domain.DataSource{Connector: "gazzetta"})
	assert.EqualError(t, err, `no connector registered for "gazzetta" (available: eurlex, normattiva)`)

	_, err = r.ResolveModel("contracts")
	assert.EqualError(t, err, `no model registered for "contracts" (available: hr-articles, legal-articles)`)

	_, err = r.ResolveStore("contracts")
	assert.EqualError(t, err, `no store registered for "contracts" (available: hr-articles, legal-articles)`)
}

func TestRegisterDefaults(t *testing.T) {
	r := NewPluginRegistry()
	RegisterDefaults(r, DefaultPlugins{})

	assert.Equal(t, RegisteredPlugins{
		Connectors: []string{"eurlex", "normattiva"},
		Models:     []string{"hr-articles", "legal-articles"},
		Stores:     []string{"hr-articles", "legal-articles"},
	}, r.Registered())

	conn, err := r.ResolveConnector(domain.DataSource{ID: "codice-civile", Connector: domain.ConnectorNormattiva})
	require.NoError(t, err)
	assert.IsType(t, &normattiva.Connector{}, conn)

	conn, err = r.ResolveConnector(domain.DataSource{ID: "gdpr", Connector: domain.ConnectorEurLex})
	require.NoError(t, err)
	assert.IsType(t, &eurlex.Connector{}, conn)

	model, err := r.ResolveModel(domain.DataTypeHRArticles)
	require.NoError(t, err)
	assert.IsType(t, &LegalArticleModel{}, model)

	store, err := r.ResolveStore(domain.DataTypeHRArticles)
	require.NoError(t, err)
	assert.IsType(t, &CorpusStore{}, store)
}

func TestPluginRegistry_RegisterReplaces(t *testing.T) {
	r := NewPluginRegistry()
	RegisterDefaults(r, DefaultPlugins{})

	sentinel := errors.New("custom")
	r.RegisterModel(domain.DataTypeLegalArticles, func() (driven.DataModel, error) { return nil, sentinel })

	_, err := r.ResolveModel(domain.DataTypeLegalArticles)
	assert.ErrorIs(t, err, sentinel)
}
