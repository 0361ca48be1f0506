// Package workspace locates and inspects the local clones kept under
// <root>/workspace/<container-id>.
//
// The directory name is fixed so every synchronization run reuses the clones of
// the previous one; a container's entry is either absent, a valid clone (a
// directory with a .git directory), or corrupted (anything else). Entries are
// only ever removed through Manager.Remove, which refuses paths outside the
// workspace directory.
package workspace
