// Package movie defines the record types and collaborator interfaces shared by
// the harvesting and normalization stages.
package movie
