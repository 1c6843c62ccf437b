/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

// logger adapts logf for the library packages.
func logger(cfg *Config) func(format string, args ...any) {
	return func(format string, args ...any) {
		logf(cfg, format, args...)
	}
}

// drainErrors logs handler write failures until ctx is done.
func drainErrors(ctx context.Context, cfg *Config, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errs:
			logf(cfg, "ERROR: %v", err)
		}
	}
}

func newPage(cfg *Config, title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(getFavicon(cfg))
	htmlBody.WriteString(fmt.Sprintf(`<link rel="stylesheet" href="%s/assets/expedition/app.css">`, cfg.prefix))
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf(`<body class="home"><a class="panel" href="%s/">%s</a></body></html>`, cfg.prefix, body))

	return htmlBody.String()
}
