package statuspage

const htmlTemplateSource = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Code}} {{.Text}}</title>
</head>
<body>
<h1>{{.Code}} {{.Text}}</h1>
<p>{{.Message}}</p>
<hr>
<small>{{.Kind}}{{with .Node}} on {{.}}{{end}}{{with .RequestID}}, request {{.}}{{end}}</small>
</body>
</html>
`

const textTemplateSource = `{{.Code}} {{.Text}}

{{.Message}}

kind: {{.Kind}}
{{- with .Node}}
node: {{.}}
{{- end}}
{{- with .RequestID}}
request: {{.}}
{{- end}}
`
