// Package descriptor reads system descriptors (system.json) and records the
// resolved commit of each container back into them.
//
// Descriptors are hand-edited, so they are parsed leniently: comments and
// trailing commas are accepted. Updates patch a single value in place and keep
// the key order of the document, so a run only changes the lines it has to.
package descriptor
