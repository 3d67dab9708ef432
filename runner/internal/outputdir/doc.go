// Package outputdir prepares the backup output directory before the first cycle.
//
// Prepare creates the directory (fatal on failure: the backup tool needs it)
// and, when the ownership policy is enabled, applies chown/chmod to the tree.
// Ownership fix-ups are best effort. Containers that drop CAP_CHOWN or mount
// the volume read-only for metadata routinely refuse them, so every failure
// is logged as a *FixupError and never returned.
//
// The policy is off by default; the UID/GID pair (99:100 on unRAID, 1000:1000
// elsewhere) belongs to the deployment, not to the runner.
package outputdir
