/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/expedition/leaderboard"
)

// openLeaderboard prefers the sqlite store when a database path is set. The
// returned func releases the store.
func openLeaderboard(cfg *Config) (*leaderboard.Board, func() error, error) {
	opts := []leaderboard.Option{leaderboard.WithLogger(logger(cfg))}

	if cfg.leaderboardDB != "" {
		store, err := leaderboard.NewSQLiteStore(cfg.leaderboardDB)
		if err != nil {
			return nil, nil, err
		}

		logf(cfg, "START: Using leaderboard database %s", cfg.leaderboardDB)

		return leaderboard.New(store, opts...), store.Close, nil
	}

	logf(cfg, "START: Using leaderboard file %s", cfg.leaderboardFile)

	return leaderboard.New(leaderboard.NewFileStore(cfg.leaderboardFile), opts...), func() error { return nil }, nil
}

func serveLeaderboard(cfg *Config, board *leaderboard.Board, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		data, err := json.Marshal(board.Entries())
		if err != nil {
			errs <- err

			http.Error(w, "leaderboard unavailable", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		written, err := w.Write(data)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Leaderboard (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}
