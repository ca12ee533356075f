package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	"github.com/myrjola/nearmiss/internal/errors"
	"github.com/myrjola/nearmiss/internal/storage"
)

type healthStatus struct {
	Status string `json:"status"`
	Cases  int    `json:"cases"`
}

// healthy reports whether the case repository answers and the artifact directories are still in place.
func (app *application) healthy(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{Status: "ok", Cases: 0}
	code := http.StatusOK

	count, err := app.cases.Count(r.Context())
	if err == nil {
		status.Cases = count
		err = checkDirs(app.dirs.Uploads, app.dirs.PDFs, app.dirs.Images)
	}
	if err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelError, "health check failed", errors.SlogError(err))
		status = healthStatus{Status: "unavailable", Cases: 0}
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

func checkDirs(dirs ...*storage.Dir) error {
	for _, d := range dirs {
		info, err := os.Stat(d.Root())
		if err != nil {
			return errors.Wrap(err, "stat artifact directory", slog.String("root", d.Root()))
		}
		if !info.IsDir() {
			return errors.New("artifact path is not a directory", slog.String("root", d.Root()))
		}
	}
	return nil
}
