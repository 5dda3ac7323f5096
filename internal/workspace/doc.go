// Package workspace materializes slot-ready editor workspace configurations
// from templates.
//
// A template is a .code-workspace style JSON document: an ordered folders
// list plus an open-ended settings map. Materialization resolves every
// relative folder path against the template's own directory, prepends a
// self-referential "." entry so the slot directory is always part of the
// workspace, and resolves path-valued settings keys the same way, keeping
// any glob suffix verbatim.
//
// Templates are read-only inputs. Materialization runs fresh on every
// dispatch so a recycled slot always starts from the current template rather
// than a provisioning-time snapshot. Unknown keys pass through unchanged and
// in their original order; see [Document].
package workspace
