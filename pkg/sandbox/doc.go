// Package sandbox executes validated queries against a read-only dataset.
//
// The dataset handle is opened with mode=ro at the engine level, so writes
// are physically impossible rather than merely disallowed by policy. The
// executor independently re-confirms that the text begins with SELECT before
// touching the engine, bounds the number of rows materialized into memory
// with a hard cap, and reports the true match count separately so the cap
// never distorts it. Execution-time failures of any kind are caught at the
// boundary and returned as *ExecError values; they never propagate as
// faults that would abort a batch.
package sandbox
