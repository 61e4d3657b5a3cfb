package main

import (
	"encoding/json"
	"html/template"
	"net/http"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const defaultTailLines = 200

var homeTemplate = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<meta http-equiv="refresh" content="10">
	<title>Trading Bot Logs</title>
	<style>
		body { font-family: monospace; background: #111; color: #ddd; margin: 1em; }
		h1 { font-size: 1.2em; color: #fff; }
		pre { white-space: pre-wrap; word-break: break-all; }
		a { color: #6cf; }
	</style>
</head>
<body>
	<h1>Trading Bot Logs</h1>
	<p><a href="/download">Download full log</a></p>
	<pre>{{range .Lines}}{{.}}
{{end}}</pre>
</body>
</html>
`))

// LogHandler serves the bot's append-only log file. Strictly read-only:
// it tails and downloads, never writes.
type LogHandler struct {
	log     *zap.Logger
	logFile string
}

// NewLogHandler creates a new LogHandler for the given log file.
func NewLogHandler(log *zap.Logger, logFile string) *LogHandler {
	return &LogHandler{log: log, logFile: logFile}
}

// tail returns the last n lines of the log file. A missing file is not an
// error; the bot may simply not have started yet.
func (h *LogHandler) tail(n int) ([]string, error) {
	data, err := os.ReadFile(h.logFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil, nil
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

// HomeHandler renders the auto-refreshing tail page.
func (h *LogHandler) HomeHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	lines, err := h.tail(defaultTailLines)
	if err != nil {
		h.log.Error("Failed to read log file", zap.Error(err))
		http.Error(w, "Failed to read log file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := homeTemplate.Execute(w, struct{ Lines []string }{Lines: lines}); err != nil {
		h.log.Error("Failed to render log page", zap.Error(err))
	}
}

// LogsHandler returns the last lines of the log as JSON. The optional
// limit query parameter bounds the tail length.
func (h *LogHandler) LogsHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultTailLines
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	lines, err := h.tail(limit)
	if err != nil {
		h.log.Error("Failed to read log file", zap.Error(err))
		http.Error(w, "Failed to read log file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Lines []string `json:"lines"`
	}{Lines: lines})
}

// DownloadHandler serves the raw log file as an attachment.
func (h *LogHandler) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := os.Stat(h.logFile); os.IsNotExist(err) {
		http.Error(w, "Log file not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=trading_log.txt")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	http.ServeFile(w, r, h.logFile)
}
