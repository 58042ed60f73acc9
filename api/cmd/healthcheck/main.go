package main

import (
	"net/http"
	"os"
	"time"
)

func main() {
	port := os.Getenv("AK_PORT")
	if port == "" {
		port = "5000"
	}

	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get("http://localhost:" + port + "/api/health")
	if err != nil || resp.StatusCode != http.StatusOK {
		os.Exit(1) // Docker marks as UNHEALTHY
	}
	resp.Body.Close()
	os.Exit(0) // Docker marks as HEALTHY
}
