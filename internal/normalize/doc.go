// Package normalize reshapes flat movie rows into deduplicated dimension
// tables, fact rows and bridge rows.
//
// Surrogate ids are assigned in a single pass. Each dimension kind has its
// own counter starting at 1, and a name gets an id the first time it is seen
// in the run. Names match exactly after trimming: "Drama" and "drama" are two
// entities. Ids are scoped to one Normalizer; a new run starts from 1 again.
//
// A Normalizer is not safe for concurrent use.
package normalize
