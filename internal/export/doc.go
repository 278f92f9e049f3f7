// Package export is the serialization boundary: sink rows as CSV in the
// fixed column order, and the dimensional model as JSON documents.
package export
