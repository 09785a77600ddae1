// Package docstore opens project documents from local files, HTTP URLs and
// database storage, extracting archived projects into a private scratch
// directory.
//
// A Store memoizes documents per URI and must be closed once the resolution
// pass or activation that created it completes; Close removes every file the
// Store extracted or downloaded.
package docstore
