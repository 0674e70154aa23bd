package templates

import "embed"

//go:embed emails/*.tmpl
var EmailTemplateFS embed.FS
