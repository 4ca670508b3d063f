// Package frontend provides the embedded todo page and its static assets.
package frontend

import "embed"

// Files contains the web frontend under dist/.
//
//go:embed dist
var Files embed.FS
