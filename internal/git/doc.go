// Package git is the only place where stacker talks to git.
//
// It provides:
//   - The naming scheme for stacker's bookkeeping refs (refs/stacker/{base,start,remote}/<branch>)
//   - An immutable Snapshot of every ref in the repository, decoded from one for-each-ref call
//   - The Backend interface the reconciliation engine drives, and CLIBackend, its git CLI implementation
//
// Every mutating Backend call is a single atomic git operation. Ref writes carry
// the previously observed value so concurrent writers fail instead of clobbering.
package git
