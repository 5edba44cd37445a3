package server

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"

	"github.com/VyvaHart/system-load-demonstrator/internal/config"
	"github.com/VyvaHart/system-load-demonstrator/internal/load"
)

var landingTemplate = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Name}}</title></head>
<body>
<h1>{{.Name}} {{.Version}}</h1>
<p>Generates CPU, memory and disk I/O load on demand.</p>
<h2>Endpoints</h2>
<ul>
<li><a href="/load">/load</a> run a load request</li>
<li><a href="/metrics">/metrics</a> Prometheus metrics</li>
<li><a href="/health">/health</a> liveness</li>
<li><a href="/info">/info</a> service description</li>
</ul>
<h2>/load parameters</h2>
<table>
<tr><th>name</th><th>default</th><th>values</th></tr>
<tr><td>mode</td><td>{{.Defaults.Mode}}</td><td>{{range $i, $m := .Modes}}{{if $i}} | {{end}}{{$m}}{{end}}</td></tr>
<tr><td>iterations</td><td>{{.Defaults.Iterations}}</td><td>1 to {{.Limits.MaxIterations}}</td></tr>
<tr><td>data_size_mb</td><td>{{.Defaults.DataSizeMB}}</td><td>0 to {{.Limits.MaxDataSizeMB}}</td></tr>
<tr><td>cpu_algorithm</td><td>{{.Defaults.CPUAlgorithm}}</td><td>{{range $i, $a := .Algorithms}}{{if $i}} | {{end}}{{$a}}{{end}}</td></tr>
<tr><td>cpu_task_scale</td><td>{{.Defaults.CPUTaskScale}}</td><td>1 to {{.Limits.MaxCPUTaskScale}}</td></tr>
<tr><td>force_cpu, force_memory, force_io</td><td>false</td><td>true</td></tr>
</table>
<p>A single recursive fibonacci (iterations=1) accepts cpu_task_scale up to {{.MaxRecursiveScale}}.
{{if .Limits.MaxCPUWork}}CPU work is capped at about {{printf "%.3g" .Limits.MaxCPUWork}} operations per request.{{end}}</p>
<p>Example: <a href="/load?mode=cpu_heavy&amp;cpu_algorithm=hashing&amp;iterations=5">/load?mode=cpu_heavy&amp;cpu_algorithm=hashing&amp;iterations=5</a></p>
</body>
</html>
`))

type landingData struct {
	Name       string
	Version    string
	Modes      []load.Mode
	Algorithms []load.Algorithm
	Defaults   load.Request
	Limits     load.Limits

	MaxRecursiveScale int
}

// newLandingHandler renders the landing page once; it only depends on configuration.
func newLandingHandler(cfg *config.Config, limits load.Limits) (http.Handler, error) {
	data := landingData{
		Name:       cfg.App.Name,
		Version:    cfg.App.Version,
		Modes:      load.Modes,
		Algorithms: load.Algorithms,
		Defaults:   load.DefaultRequest(),
		Limits:     limits,

		MaxRecursiveScale: load.MaxRecursiveFibonacciScale,
	}

	var buf bytes.Buffer
	if err := landingTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render landing page: %w", err)
	}
	page := buf.Bytes()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	}), nil
}
