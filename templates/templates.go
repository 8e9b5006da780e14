// Package templates embeds the html/template page layouts.
package templates

import "embed"

// FS holds every .tmpl file.
//
//go:embed *.tmpl partials/*.tmpl
var FS embed.FS
