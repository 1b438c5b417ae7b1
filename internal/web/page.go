package web

import (
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"vidsum/internal/export"
	"vidsum/internal/history"
	"vidsum/internal/ui"
)

type card struct {
	history.Entry
	Day         string
	SummaryHTML template.HTML
	ExportHref  string
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>AI Video Summarizer - History</title>
<style>
:root{--primary:#4361ee;--muted:#6c757d}
body{font-family:Arial,sans-serif;margin:0;background:#f8f9fa;color:#212529}
main{max-width:1100px;margin:0 auto;padding:24px}
h1{color:var(--primary)}
.grid{display:grid;grid-template-columns:repeat(auto-fill,minmax(320px,1fr));gap:16px}
.card{background:#fff;border-radius:12px;box-shadow:0 2px 8px rgba(0,0,0,.08);overflow:hidden;display:flex;flex-direction:column}
.card img{width:100%;aspect-ratio:16/9;object-fit:cover}
.body{padding:12px 16px;flex:1}
.meta{color:var(--muted);font-size:13px;display:flex;gap:8px;align-items:center}
.tag{background:var(--primary);color:#fff;border-radius:10px;padding:1px 8px;font-size:12px}
.summary{line-height:1.6;font-size:14px;max-height:12em;overflow:auto}
.actions{display:flex;gap:8px;padding:12px 16px;border-top:1px solid #eee}
button,.btn{border:1px solid var(--primary);background:#fff;color:var(--primary);border-radius:6px;padding:4px 10px;cursor:pointer;text-decoration:none;font-size:13px}
.empty{color:var(--muted);text-align:center;padding:48px}
</style>
</head>
<body>
<main>
<h1>History</h1>
{{if .}}
<div class="grid">
{{range .}}
<div class="card">
  <a href="{{.URL}}" target="_blank" rel="noopener"><img src="{{.Thumbnail}}" alt="{{.Title}}"></a>
  <div class="body">
    <h3>{{.Title}}</h3>
    <div class="meta"><span>{{.Day}}</span><span class="tag">{{.FormatLabel}}</span></div>
    <div class="summary">{{.SummaryHTML}}</div>
  </div>
  <div class="actions">
    <button data-summary="{{.Summary}}" onclick="copySummary(this)">Copy</button>
    <a class="btn" href="{{.ExportHref}}">PDF</a>
    <button data-url="{{.URL}}" onclick="deleteEntry(this)">Delete</button>
  </div>
</div>
{{end}}
</div>
{{else}}
<p class="empty">No history yet. Summaries you generate will appear here.</p>
{{end}}
</main>
<script>
function copySummary(b){navigator.clipboard.writeText(b.dataset.summary).then(()=>alert('Summary copied to clipboard')).catch(()=>alert('Failed to copy summary'))}
function deleteEntry(b){
  if(!confirm('Are you sure you want to delete this summary from your history?'))return;
  fetch('/api/history?confirm=true&url='+encodeURIComponent(b.dataset.url),{method:'DELETE'}).then(()=>location.reload())
}
</script>
</body>
</html>
`))

func (s *Server) handlePage(c *gin.Context) {
	list := s.svc.History().Load(c.Request.Context())
	cards := make([]card, 0, len(list))
	for _, e := range list {
		summary := template.HTML(template.HTMLEscapeString(history.NoSummaryLabel))
		if e.HasSummary() {
			summary = template.HTML(export.FormatSummaryHTML(e.Summary))
		}
		cards = append(cards, card{
			Entry:       e,
			Day:         ui.FormatDate(e.Date),
			SummaryHTML: summary,
			ExportHref:  "/api/history/export?" + url.Values{"url": {e.URL}, "as": {string(export.PDF)}}.Encode(),
		})
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := pageTmpl.Execute(c.Writer, cards); err != nil {
		s.logger.Error("render page failed", slog.Any("error", err))
	}
}
