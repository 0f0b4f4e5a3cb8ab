package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"voxelsim.ai/internal/persistence/indexdb"
	"voxelsim.ai/internal/sim/world"
)

// simState mirrors the body of the sim's /admin/v1/state endpoint.
type simState struct {
	WorldID string        `json:"world_id"`
	Metrics world.Metrics `json:"metrics"`
	Index   indexdb.Stats `json:"index"`
}

func (s simState) summary() string {
	m := s.Metrics
	return fmt.Sprintf("world=%s tick=%d chunks=%d entities=%d due=%d step=%.2fms index_queue=%d/%d",
		s.WorldID, m.Tick, m.LoadedChunks, m.Entities, m.DueTicks, m.StepMS,
		s.Index.QueueDepth, s.Index.QueueCapacity)
}

func fetchState(cl *http.Client, baseURL string) (simState, error) {
	var st simState
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/admin/v1/state"
	resp, err := cl.Get(u)
	if err != nil {
		return st, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return st, fmt.Errorf("%s: %s: %s", u, resp.Status, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("%s: decode: %w", u, err)
	}
	return st, nil
}

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "sim base url")
	asJSON := fs.Bool("json", false, "print the full state as json")
	_ = fs.Parse(args)

	st, err := fetchState(&http.Client{Timeout: 5 * time.Second}, *baseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "state:", err)
		os.Exit(1)
	}
	if *asJSON {
		printJSON(st)
		return
	}
	fmt.Println(st.summary())
}
