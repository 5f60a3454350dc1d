// Package builtin provides the plugins shipped with dotsnapshot.
//
// Three plugin shapes cover the default catalogue:
//
//   - [Command] captures the standard output of a command line, for
//     package managers and editors that can list what is installed.
//   - [File] captures a single configuration file and copies it back on
//     restore.
//   - [StaticFiles] copies an arbitrary list of files into the snapshot's
//     static/ directory and restores them to where they came from.
//
// [Register] adds the catalogue to a registry, applying the per-plugin
// settings from the configuration file.
package builtin
