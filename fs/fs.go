// Package appfs holds the files embedded in the binaries: SQL migrations, email templates
// and the demo dataset.
package appfs

import "embed"

// email templates are listed by glob so that the _base layouts are kept
//go:embed migrations/*.sql templates/email/* seed/*.yaml
var FS embed.FS
