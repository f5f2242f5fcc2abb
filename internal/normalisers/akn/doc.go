// Package akn parses Akoma Ntoso (AKN) XML, the structured markup Normattiva
// publishes Italian legislation in, into articles with their hierarchy.
package akn
