package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// adminClient talks to the loopback admin API of a running server.
type adminClient struct {
	base string
	http *http.Client
}

func adminFlags(name string, args []string, extra func(fs *flag.FlagSet)) adminClient {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	if extra != nil {
		extra(fs)
	}
	_ = fs.Parse(args)
	return adminClient{
		base: strings.TrimRight(strings.TrimSpace(*baseURL), "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// call prints the response body and exits non-zero on any failure.
func (c adminClient) call(method, path string) {
	req, err := http.NewRequest(method, c.base+path, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(2)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(os.Stdout, resp.Body)
	fmt.Println()
	if resp.StatusCode/100 != 2 {
		fmt.Fprintln(os.Stderr, method, path+":", resp.Status)
		os.Exit(1)
	}
}

func stateCmd(args []string) {
	adminFlags("state", args, nil).call(http.MethodGet, "/admin/v1/state")
}

func snapshotCmd(args []string) {
	adminFlags("snapshot", args, nil).call(http.MethodPost, "/admin/v1/snapshot")
}

// playerCmd asks a running server's index for a player's recent audit rows.
func playerCmd(args []string) {
	var id, limit *int
	c := adminFlags("player", args, func(fs *flag.FlagSet) {
		id = fs.Int("id", 1, "player id")
		limit = fs.Int("limit", 50, "max rows")
	})
	c.call(http.MethodGet, fmt.Sprintf("/admin/v1/audit/%d?limit=%d", *id, *limit))
}
