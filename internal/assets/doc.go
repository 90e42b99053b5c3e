// Package assets writes content-addressed files.
//
// Every file is written as base.<md5hex>.ext and its logical path
// (destDir/base.ext) is recorded in the build's hash manifest, so two builds of
// identical bytes always produce identical names.
package assets
