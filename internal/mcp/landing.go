package mcp

import (
	"bytes"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/bull/video-rag/internal/answer"
	"github.com/bull/video-rag/internal/query"
)

const pageStyle = `<style>
  *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #0f172a; color: #e2e8f0; min-height: 100vh; display: flex; align-items: center; justify-content: center; }
  .card { max-width: 720px; width: 90%; background: #1e293b; border-radius: 12px; padding: 2.5rem; box-shadow: 0 25px 50px rgba(0,0,0,0.4); }
  h1 { font-size: 1.75rem; margin-bottom: 0.5rem; color: #f8fafc; }
  .subtitle { color: #94a3b8; margin-bottom: 1.75rem; }
  .section { margin-bottom: 1.5rem; }
  .section-title { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.1em; color: #64748b; margin-bottom: 0.5rem; }
  a { color: #38bdf8; text-decoration: none; }
  a:hover { text-decoration: underline; }
  input[type=text] { width: 100%; padding: 0.75rem; border-radius: 8px; border: 1px solid #334155; background: #0f172a; color: #e2e8f0; font-size: 1rem; }
  button { margin-top: 0.75rem; padding: 0.6rem 1.2rem; border: 0; border-radius: 8px; background: #38bdf8; color: #0f172a; font-weight: 600; cursor: pointer; }
  .answer p { margin-bottom: 0.75rem; line-height: 1.6; }
  .warning { color: #fbbf24; }
  pre { background: #0f172a; border: 1px solid #334155; border-radius: 8px; padding: 1rem; overflow-x: auto; font-size: 0.85rem; line-height: 1.5; color: #e2e8f0; }
  code { font-family: "SF Mono", "Fira Code", "Fira Mono", Menlo, monospace; }
  .endpoint { font-family: "SF Mono", monospace; font-size: 0.9rem; color: #a5b4fc; }
  video { width: 100%; border-radius: 8px; margin-top: 0.5rem; }
</style>`

const landingHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Lecture Video RAG</title>
` + pageStyle + `
</head>
<body>
<div class="card">
  <h1>Lecture Video RAG</h1>
  <p class="subtitle">Ask a question about the indexed lectures and get the answer with the clip it comes from.</p>

  <div class="section">
    <form action="/ask" method="get">
      <input type="text" name="q" placeholder="What is a convolutional layer?" autofocus>
      <button type="submit">Ask</button>
    </form>
  </div>

  <div class="section">
    <div class="section-title">Endpoints</div>
    <p><a href="/mcp" class="endpoint">/mcp</a> MCP Streamable HTTP</p>
    <p><a href="/health" class="endpoint">/health</a> Health check</p>
  </div>
</div>
</body>
</html>`

var answerPage = template.Must(template.New("answer").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Question}} | Lecture Video RAG</title>
` + pageStyle + `
</head>
<body>
<div class="card">
  <h1>{{.Question}}</h1>
  <p class="subtitle"><a href="/">Ask another question</a></p>
  {{if .Warning}}<p class="section warning">{{.Warning}}</p>{{end}}
  <div class="section answer">{{.Answer}}</div>
  {{if .VideoID}}
  <div class="section">
    <div class="section-title">Source</div>
    <p>Video <code>{{.VideoID}}</code> from {{.Start}} to {{.End}}</p>
    {{if .ClipURL}}<video controls src="{{.ClipURL}}"></video>{{else if .ClipURI}}<pre><code>{{.ClipURI}}</code></pre>{{end}}
  </div>
  {{end}}
</div>
</body>
</html>`))

type answerView struct {
	Question string
	Answer   template.HTML
	Warning  string
	VideoID  string
	Start    string
	End      string
	ClipURL  string // Served from /clips/
	ClipURI  string // Published elsewhere
}

// NewLandingHandler returns an HTTP handler that serves the landing page at /.
func NewLandingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(landingHTML))
	}
}

// NewAskHandler serves /ask?q=..., rendering the answer as HTML with a player
// for the cited clip. Clips written under clipsDir are linked through /clips/.
func NewAskHandler(svc QueryService, clipsDir string, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		question := strings.TrimSpace(r.URL.Query().Get("q"))
		if question == "" {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		view := answerView{Question: question}
		resp, err := svc.Ask(r.Context(), question)
		switch {
		case errors.Is(err, query.ErrNoContext):
			view.Warning = "No indexed lecture content matched the question."
		case resp == nil && err != nil:
			logger.Error("ask failed", "question", question, "error", err)
			http.Error(w, "failed to answer question", http.StatusInternalServerError)
			return
		case errors.Is(err, answer.ErrParse):
			view.Warning = "The answer did not cite a video segment."
			view.Answer = renderMarkdown(resp.Reply)
		default:
			if errors.Is(err, query.ErrClip) {
				view.Warning = "The clip could not be extracted."
			}
			view.Answer = renderMarkdown(resp.Answer)
			view.VideoID = resp.Metadata.VideoID
			view.Start = answer.FormatMinutes(resp.Metadata.Start)
			view.End = answer.FormatMinutes(resp.Metadata.End)
			view.ClipURL, view.ClipURI = clipLinks(resp, clipsDir)
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := answerPage.Execute(w, view); err != nil {
			logger.Error("render answer page", "error", err)
		}
	}
}

// NewClipsHandler serves extracted clips from dir under /clips/.
func NewClipsHandler(dir string) http.Handler {
	return http.StripPrefix("/clips/", http.FileServer(http.Dir(dir)))
}

// renderMarkdown converts the model's markdown to HTML. Raw HTML in the
// source is dropped by goldmark's default renderer.
func renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

func clipLinks(resp *query.Response, clipsDir string) (url, uri string) {
	if resp.ClipPath == "" {
		return "", ""
	}
	if resp.ClipURI != resp.ClipPath {
		return "", resp.ClipURI
	}
	if clipsDir != "" && filepath.Dir(resp.ClipPath) == filepath.Clean(clipsDir) {
		return "/clips/" + filepath.Base(resp.ClipPath), ""
	}
	return "", resp.ClipPath
}
