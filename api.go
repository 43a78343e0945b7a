package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof" // register handlers
	"regexp"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vpqxl1/selfbot/rule"
	"github.com/vpqxl1/selfbot/session"
)

func (robo *Selfbot) api(ctx context.Context, listen string, metrics []prometheus.Collector) error {
	mux := http.NewServeMux()
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(
		collectors.WithGoCollectorMemStatsMetricsDisabled(),
		collectors.WithGoCollectorRuntimeMetrics(
			collectors.GoRuntimeMetricsRule{
				Matcher: regexp.MustCompile(`^(/gc/gogc:percent|/gc/gomemlimit:bytes|/gc/heap/allocs:bytes|/gc/heap/allocs:objects|/gc/heap/goal:bytes|/memory/classes/heap/released:bytes|/memory/classes/heap/stacks:bytes|/memory/classes/total:bytes|/sched/gomaxprocs:threads|/sched/goroutines:goroutines|/sched/latencies:seconds)$`),
			},
		),
	))
	reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "selfbot",
			Subsystem: "session",
			Name:      "live",
			Help:      "Number of live sessions.",
		},
		func() float64 { return float64(robo.sessions.Len()) },
	))
	reg.MustRegister(metrics...)
	opts := promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, opts))
	mux.HandleFunc("GET /debug/pprof/", pprof.Index)
	mux.HandleFunc("GET /debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("GET /debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("GET /debug/pprof/trace", pprof.Trace)
	mux.HandleFunc("GET /api/rules/{set}", robo.apiRules)
	mux.HandleFunc("DELETE /api/rules/{set}/{id}", robo.apiDropRule)
	mux.HandleFunc("GET /api/sessions", robo.apiSessions)
	mux.HandleFunc("GET /api/channels", robo.apiChannels)
	l, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("couldn't start API server: %w", err)
	}
	srv := http.Server{
		Handler:     mux,
		ReadTimeout: 5 * time.Second,
		BaseContext: func(l net.Listener) context.Context { return ctx },
	}
	go func() {
		slog.InfoContext(ctx, "HTTP API server", slog.Any("addr", l.Addr()))
		err := srv.Serve(l)
		if err == http.ErrServerClosed {
			return
		}
		slog.ErrorContext(ctx, "HTTP API server closed", slog.Any("err", err))
	}()
	<-ctx.Done()
	// The context is now done, so it is obviously the wrong choice for
	// managing the shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func jsonerror(w http.ResponseWriter, status int, msg string) {
	v := struct {
		Error  string `json:"error"`
		Status int    `json:"status"`
	}{
		Error:  msg,
		Status: status,
	}
	b, err := json.Marshal(&v)
	if err != nil {
		panic(err)
	}
	w.WriteHeader(status)
	w.Write(b)
}

// ruleset resolves an API path element to a rule store.
func (robo *Selfbot) ruleset(name string) *rule.Store {
	switch name {
	case "react":
		return robo.reacts
	case "reply":
		return robo.replies
	case "ai":
		return robo.airules
	}
	return nil
}

func (robo *Selfbot) apiRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slog.With(slog.String("api", "rules"), slog.Any("trace", uuid.New()))
	log.InfoContext(ctx, "handle", slog.String("route", r.Pattern), slog.String("remote", r.RemoteAddr))
	defer log.InfoContext(ctx, "done")
	w.Header().Set("Content-Type", "application/json")
	set := r.PathValue("set")
	s := robo.ruleset(set)
	if s == nil {
		log.WarnContext(ctx, "bad request", slog.String("set", set))
		jsonerror(w, http.StatusNotFound, "no such rule set")
		return
	}
	u := struct {
		Data   []rule.Rule `json:"data"`
		Status int         `json:"status"`
	}{
		Data:   s.Rules(),
		Status: http.StatusOK,
	}
	b, err := json.Marshal(&u)
	if err != nil {
		panic(err)
	}
	if _, err := w.Write(b); err != nil {
		log.ErrorContext(ctx, "write response failed", slog.Any("err", err))
	}
}

func (robo *Selfbot) apiDropRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slog.With(slog.String("api", "droprule"), slog.Any("trace", uuid.New()))
	log.InfoContext(ctx, "handle", slog.String("route", r.Pattern), slog.String("remote", r.RemoteAddr))
	defer log.InfoContext(ctx, "done")
	set := r.PathValue("set")
	s := robo.ruleset(set)
	if s == nil {
		log.WarnContext(ctx, "bad request", slog.String("set", set))
		jsonerror(w, http.StatusNotFound, "no such rule set")
		return
	}
	id := r.PathValue("id")
	ok, err := s.Remove(ctx, id)
	if err != nil {
		log.ErrorContext(ctx, "remove failed", slog.String("id", id), slog.Any("err", err))
		jsonerror(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		jsonerror(w, http.StatusNotFound, "no rule with that id")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type apiChannel struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitzero"`
	History int    `json:"history"`
}

func (robo *Selfbot) apiChannels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slog.With(slog.String("api", "channels"), slog.Any("trace", uuid.New()))
	log.InfoContext(ctx, "handle", slog.String("route", r.Pattern), slog.String("remote", r.RemoteAddr))
	defer log.InfoContext(ctx, "done")
	w.Header().Set("Content-Type", "application/json")
	u := struct {
		Data   []apiChannel `json:"data"`
		Status int          `json:"status"`
	}{
		Data:   make([]apiChannel, 0, robo.channels.Len()),
		Status: http.StatusOK,
	}
	for id, ch := range robo.channels.All() {
		u.Data = append(u.Data, apiChannel{ID: id, Name: ch.Name, History: len(ch.History.Messages())})
	}
	b, err := json.Marshal(&u)
	if err != nil {
		panic(err)
	}
	if _, err := w.Write(b); err != nil {
		log.ErrorContext(ctx, "write response failed", slog.Any("err", err))
	}
}

func (robo *Selfbot) apiSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slog.With(slog.String("api", "sessions"), slog.Any("trace", uuid.New()))
	log.InfoContext(ctx, "handle", slog.String("route", r.Pattern), slog.String("remote", r.RemoteAddr))
	defer log.InfoContext(ctx, "done")
	w.Header().Set("Content-Type", "application/json")
	u := struct {
		Data   []session.Info `json:"data"`
		Status int            `json:"status"`
	}{
		Data:   robo.sessions.Sessions(),
		Status: http.StatusOK,
	}
	b, err := json.Marshal(&u)
	if err != nil {
		panic(err)
	}
	if _, err := w.Write(b); err != nil {
		log.ErrorContext(ctx, "write response failed", slog.Any("err", err))
	}
}
