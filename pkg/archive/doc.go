// Package archive reads and writes experiment files.
//
// A plain .opensesame file holds the script text. A .opensesame.tar.gz
// archive holds the script as script.opensesame plus every file of the
// pool under pool/. Stored text and pool names are ASCII-encoded with
// script.EncodeASCII, so any file system or tar reader can carry them,
// and are decoded back on load.
package archive
