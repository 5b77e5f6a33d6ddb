// Package template streams %key% substitution over pages served from storage.
package template
