package internal

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"time"

	"kind4-archive/domain/archive"
	"kind4-archive/repositories"

	"github.com/shirou/gopsutil/process"
)

//go:embed inspect.html
var templatesFS embed.FS

type InspectRow struct {
	Key       string
	Sender    string
	Receiver  string
	CreatedAt string
	Detail    string
}

type RowMapper func(key string) InspectRow
type StatsProvider func(ctx context.Context) map[string]any

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

type HealthReport struct {
	PID        int32   `json:"pid"`
	Status     string  `json:"status"`
	CPUPercent float64 `json:"cpu_percent"`
	RSSBytes   uint64  `json:"rss_bytes"`
	Threads    int32   `json:"threads"`
	Uptime     string  `json:"uptime"`
}

// DebugHandler serves the archive inspector:
//
//	/inspect?prefix=  HTML table of the keys under prefix
//	/metrics          stats as JSON
//	/health           process stats
func DebugHandler(log *slog.Logger, repository repositories.IArchiveRepository, mapper RowMapper, statsProvider StatsProvider) http.Handler {
	mux := http.NewServeMux()
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))
	startedAt := time.Now()

	if mapper == nil {
		mapper = DefaultMapper
	}
	if statsProvider == nil {
		statsProvider = func(context.Context) map[string]any { return map[string]any{} }
	}

	mux.HandleFunc("/inspect", func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "npub1"
		}

		keys, err := repository.List(r.Context(), prefix)
		if err != nil {
			log.Error("Debug inspect failed", "prefix", prefix, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		data := PageData{
			Prefix: prefix,
			Items:  make([]InspectRow, 0, len(keys)),
			Stats:  statsProvider(r.Context()),
		}
		for _, key := range keys {
			data.Items = append(data.Items, mapper(key))
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})

	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		writeDebugJSON(w, statsProvider(r.Context()))
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		report, err := currentHealth(startedAt)
		if err != nil {
			log.Error("Debug health failed", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeDebugJSON(w, report)
	})

	return mux
}

// StartDebugServer serves handler on localhost only. The caller shuts it down.
func StartDebugServer(log *slog.Logger, port int, handler http.Handler) *http.Server {
	server := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Debug server stopped", "error", err)
		}
	}()
	log.Info("Debug inspector available", "url", fmt.Sprintf("http://localhost:%d/inspect", port))
	return server
}

func DefaultMapper(key string) InspectRow {
	row := InspectRow{
		Key:       key,
		Sender:    "-",
		Receiver:  "-",
		CreatedAt: "--",
	}
	parsed, err := archive.ParseKey(key)
	if err != nil {
		row.Detail = err.Error()
		return row
	}
	row.Sender = shorten(parsed.Sender.String())
	row.Receiver = shorten(parsed.Receiver.String())
	row.CreatedAt = time.Unix(parsed.CreatedAt, 0).UTC().Format(time.RFC3339)
	return row
}

func shorten(npub string) string {
	if len(npub) <= 16 {
		return npub
	}
	return npub[:10] + "…" + npub[len(npub)-4:]
}

func currentHealth(startedAt time.Time) (HealthReport, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return HealthReport{}, err
	}
	status, err := p.Status()
	if err != nil {
		return HealthReport{}, err
	}
	cpu, err := p.CPUPercent()
	if err != nil {
		return HealthReport{}, err
	}
	memory, err := p.MemoryInfo()
	if err != nil {
		return HealthReport{}, err
	}
	threads, err := p.NumThreads()
	if err != nil {
		return HealthReport{}, err
	}
	return HealthReport{
		PID:        p.Pid,
		Status:     status,
		CPUPercent: cpu,
		RSSBytes:   memory.RSS,
		Threads:    threads,
		Uptime:     time.Since(startedAt).Round(time.Second).String(),
	}, nil
}

func writeDebugJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(payload)
}
