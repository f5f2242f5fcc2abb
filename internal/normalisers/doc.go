// Package normalisers holds the parsers that turn downloaded legal documents
// into articles. Each sub-package understands one source format; textclean is
// the cleanup they share.
package normalisers
