// Command upstream is a local stand-in for the category API. It answers
// /products/category-list and speaks the timing protocol, stamping time-start
// and time-end so the service's collector has remote timestamps to work with.
package main

import (
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/3xpluto/second-service/internal/timing"
)

func main() {
	var addr string
	var categories string
	var delay time.Duration
	flag.StringVar(&addr, "addr", ":9001", "listen address")
	flag.StringVar(&categories, "categories", "beauty,fragrances,furniture,groceries", "comma separated category list")
	flag.DurationVar(&delay, "delay", 0, "artificial processing delay")
	flag.Parse()

	list := strings.Split(categories, ",")
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	r := chi.NewRouter()
	r.Get("/products/category-list", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(timing.HeaderTimeStart, strconv.FormatInt(timing.Now(), 10))
		if delay > 0 {
			time.Sleep(delay)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set(timing.HeaderTimeEnd, strconv.FormatInt(timing.Now(), 10))
		_ = json.NewEncoder(w).Encode(list)
	})

	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	log.Info("upstream listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil {
		log.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
