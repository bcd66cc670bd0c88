package report

import "html/template"

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Data Quality Report</title>
<style>
body { font-family: -apple-system, Segoe UI, Helvetica, Arial, sans-serif; margin: 2em; color: #222; }
h1 { border-bottom: 2px solid #2c5f8a; padding-bottom: 0.3em; }
h2 { color: #2c5f8a; margin-top: 2em; }
.cards { display: flex; flex-wrap: wrap; gap: 1em; margin: 1.5em 0; }
.card { background: #f4f7fa; border-left: 4px solid #2c5f8a; padding: 1em 1.5em; min-width: 9em; }
.card .value { font-size: 1.8em; font-weight: bold; }
.card .label { color: #666; font-size: 0.85em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
th, td { border: 1px solid #ddd; padding: 0.5em 0.8em; text-align: left; font-size: 0.9em; }
th { background: #2c5f8a; color: white; }
tr:nth-child(even) { background: #f8f9fa; }
.pass { color: #1a7f37; font-weight: bold; }
.fail { color: #c0392b; font-weight: bold; }
.warn { color: #b7791f; font-weight: bold; }
.meta { color: #888; font-size: 0.8em; margin-top: 3em; }
</style>
</head>
<body>
<h1>Data Quality Report</h1>

<div class="cards">
  <div class="card"><div class="value">{{.Summary.Tables}}</div><div class="label">tables processed</div></div>
  <div class="card"><div class="value">{{.Summary.TablesLoaded}}</div><div class="label">tables loaded</div></div>
  <div class="card"><div class="value">{{.Summary.TablesFailed}}</div><div class="label">tables failed</div></div>
  <div class="card"><div class="value">{{.Summary.RowsLoaded}}</div><div class="label">rows loaded</div></div>
  <div class="card"><div class="value">{{.Summary.CriticalFailures}}</div><div class="label">critical failures</div></div>
  <div class="card"><div class="value">{{.Summary.WarningFailures}}</div><div class="label">warnings</div></div>
  <div class="card"><div class="value">{{.Summary.Outliers}}</div><div class="label">outlier rows</div></div>
</div>

<h2>Tables</h2>
<table>
<tr><th>Table</th><th>Status</th><th>Rows</th><th>Loaded</th><th>Failed</th><th>Duplicates</th><th>Error</th></tr>
{{range .Tables}}
<tr>
  <td>{{.Table}}</td>
  <td class="{{if eq .Status "LOADED"}}pass{{else if eq .Status "FAILED"}}fail{{else}}warn{{end}}">{{.Status}}</td>
  <td>{{if .Validation}}{{.Validation.Rows}}{{end}}</td>
  <td>{{if .Load}}{{.Load.Loaded}}{{end}}</td>
  <td>{{if .Load}}{{.Load.Failed}}{{end}}</td>
  <td>{{if .Validation}}{{.Validation.DuplicateRows}}{{end}}</td>
  <td>{{.Error}}</td>
</tr>
{{end}}
</table>

<h2>Validation Results</h2>
<table>
<tr><th>Table</th><th>Rule</th><th>Severity</th><th>Result</th><th>Failing Rows</th><th>Message</th></tr>
{{range .Tables}}{{$t := .Table}}{{range .Rules}}
<tr>
  <td>{{$t}}</td>
  <td>{{.RuleName}}</td>
  <td>{{.Severity}}</td>
  <td class="{{if .Passed}}pass{{else}}fail{{end}}">{{if .Passed}}PASS{{else}}FAIL{{end}}</td>
  <td>{{.FailingRows}}</td>
  <td>{{.Message}}</td>
</tr>
{{end}}{{end}}
</table>

<h2>Structural Findings</h2>
<table>
<tr><th>Table</th><th>Check</th><th>Column</th><th>Count</th><th>Detail</th></tr>
{{range .Tables}}{{$t := .Table}}{{if .Validation}}{{range .Validation.Findings}}
<tr><td>{{$t}}</td><td>{{.Check}}</td><td>{{.Column}}</td><td>{{.Count}}</td><td>{{.Message}}</td></tr>
{{end}}{{end}}{{end}}
</table>

<h2>Anomalies</h2>
<table>
<tr><th>Table</th><th>Column</th><th>Method</th><th>Outliers</th><th>Share</th></tr>
{{range .Tables}}{{$t := .Table}}{{if .Anomalies}}
{{range .Anomalies.Findings}}
<tr><td>{{$t}}</td><td>{{.Column}}</td><td>{{.Method}}</td><td>{{.Count}}</td><td>{{printf "%.1f%%" .Percentage}}</td></tr>
{{end}}
{{if .Anomalies.Multivariate}}
<tr><td>{{$t}}</td><td>{{range $i, $c := .Anomalies.Multivariate.Columns}}{{if $i}}, {{end}}{{$c}}{{end}}</td><td>isolation_forest</td><td>{{.Anomalies.Multivariate.Count}}</td><td>{{printf "%.1f%%" .Anomalies.Multivariate.Percentage}}</td></tr>
{{end}}
{{end}}{{end}}
</table>

<div class="meta">Generated {{.GeneratedAt.Format "2006-01-02 15:04:05"}} &middot; run took {{printf "%.1fs" .Summary.DurationSeconds}}</div>
</body>
</html>
`))
