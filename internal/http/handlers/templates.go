package handlers

import "html/template"

// Template names rendered by AnswerPage.
const (
	tmplAnswer   = "answer.html"
	tmplNotFound = "not_found.html"
)

// pendingRefreshSeconds is how often the pending page reloads itself.
const pendingRefreshSeconds = 5

const pageTemplates = `
{{define "head"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
{{if .Refresh}}<meta http-equiv="refresh" content="{{.Refresh}}">{{end}}
<title>{{.Title}}</title>
<style>
body{font-family:system-ui,sans-serif;max-width:42rem;margin:2rem auto;padding:0 1rem;line-height:1.5;color:#222}
.status{display:inline-block;padding:.1rem .5rem;border-radius:.25rem;background:#eee;font-size:.9rem}
.status-ready{background:#d7f5dc}.status-failed{background:#fde2e1}
pre{white-space:pre-wrap;word-wrap:break-word;background:#f7f7f7;padding:1rem;border-radius:.25rem}
</style>
</head>
<body>{{end}}

{{define "foot"}}</body>
</html>{{end}}

{{define "answer.html"}}{{template "head" .}}
<h1>Your question</h1>
<pre>{{.Query}}</pre>
<p>Status: <span class="status status-{{.Status}}">{{.Status}}</span></p>
{{if .Pending}}<p>The answer is being prepared. This page refreshes automatically.</p>
{{else}}<h2>Answer</h2>
<pre>{{.Answer}}</pre>
{{end}}<p><small>Asked {{.CreatedAt}}</small></p>
{{template "foot" .}}{{end}}

{{define "not_found.html"}}{{template "head" .}}
<h1>Not found</h1>
<p>No answer exists for this link. It may have expired.</p>
{{template "foot" .}}{{end}}
`

// Templates parses the status page templates for gin's HTML renderer.
func Templates() *template.Template {
	return template.Must(template.New("pages").Parse(pageTemplates))
}

// pageData feeds the templates; html/template escapes every field.
type pageData struct {
	Title     string
	Refresh   int
	Query     string
	Status    string
	Pending   bool
	Answer    string
	CreatedAt string
}
