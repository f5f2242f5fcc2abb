// Package connectors holds the upstream legal-text sources. Each
// sub-package implements driven.Connector for one provider; httpclient is
// the transport they share.
package connectors
