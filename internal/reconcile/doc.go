// Package reconcile brings the workspace clones of a system in line with its
// descriptor and records the resolved commits back into it.
//
// Each container with a repository gets its own Pipeline: the Executor drives
// the workspace entry through an explicit state machine (clone, fetch, or
// destroy-and-reclone), the Resolver turns the container's branch into a commit
// id, and the descriptor Writer stores it. The Coordinator runs the pipelines
// concurrently; a failing container never cancels its siblings, and every
// failure is reported, tagged with its container id.
package reconcile
