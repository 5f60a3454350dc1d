// Package snapshot manages the on-disk snapshot store.
//
// # Layout
//
// Each snapshot is a directory below the store root named after its UTC
// creation time (20060102_150405, with a _NN suffix if two snapshots start
// in the same second):
//
//	<root>/
//	  20240117_143022/
//	    homebrew_brewfile.txt
//	    vscode/settings.json
//	    .snapshot/
//	      checksum.json
//
// checksum.json holds the [Metadata]: per-plugin content checksums and,
// once [Manager.Finalize] has run, the whole-directory checksum. Older
// snapshots kept metadata.json at the snapshot root; it is still read.
//
// A finalized snapshot is never modified. New runs only read the most
// recent prior snapshot to reuse identical plugin output.
package snapshot
