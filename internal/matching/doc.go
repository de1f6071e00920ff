// Package matching scores, filters and ranks collaboration candidates for a
// requester.
//
// The engine is a pure function of its inputs. Candidate records and the
// requester's profile arrive fully materialized from storage; nothing here
// performs I/O, so every operation is safe to call concurrently.
//
// Pipeline:
//
//	outcome, err := engine.Search(ctx, requester, candidates, params, weights, 20)
//	// FilterCandidates -> Score (fanned out across workers) -> min score
//	// cut -> sort -> truncate -> reasons
//
// Missing data degrades scoring instead of failing it: a candidate without a
// coordinate still gets a location sub-score from the fallback table, and a
// weight profile that sums to zero is replaced by the defaults with a warning
// on the outcome. Candidates with invalid data are skipped and reported.
package matching
