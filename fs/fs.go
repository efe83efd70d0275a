// Package appfs embeds assets the app needs at runtime: goose migrations
// and email templates.
package appfs

import "embed"

//go:embed all:migrations all:assets
var FS embed.FS
