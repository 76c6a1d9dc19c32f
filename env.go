// FILE: env.go
// Package main – Environment helpers for the trading assistant.
//
// This file provides:
//   1) Small helpers to read environment variables with sane defaults
//      (strings, ints, floats, bools).
//   2) loadBotEnv, which hydrates the process env from a .env file so the
//      bot never needs `export $(cat .env ...)`.
//
// Notes:
//   • Existing process env always wins over .env contents.
//   • ENV_FILE overrides the default ".env" path.

package main

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// --------- Env helpers (used across files) ---------

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "y", "yes":
		return true
	case "0", "false", "n", "no":
		return false
	default:
		return def
	}
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// --------- .env loader ---------

// loadBotEnv reads the .env file (path overridable via ENV_FILE) into the
// process env. Variables already exported win; a missing file is fine.
func loadBotEnv() {
	path := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil {
		log.Printf("env: %s not found, relying on process env", path)
		return
	}
	log.Printf("env: loaded %s", path)
}
