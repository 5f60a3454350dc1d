// Package plugin defines the capability interface snapshot plugins implement
// and the registry the executor and restore manager read them from.
//
// A plugin captures one configuration domain (a package list, an editor's
// settings file, a set of dotfiles) as text content. The executor decides
// where that content lands inside a snapshot:
//
//	<snapshot>/<TargetPath>/<OutputFile>
//
// OutputFile defaults to "<name>.txt" and TargetPath to the snapshot root.
// Plugins that lay out their own files return true from
// CreatesOwnOutputFiles and write below the snapshot directory passed to
// Execute.
//
// Embed [Base] to pick up defaults for every optional method.
package plugin
