package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"voxelsim.ai/internal/persistence/chunkdb"
	persistlog "voxelsim.ai/internal/persistence/log"
	"voxelsim.ai/internal/persistence/snapshot"
)

const levelFile = "level.dat.zst"

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "rollback":
			rollbackCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "level":
			levelCmd(os.Args[2:])
			return
		case "chunks":
			chunksCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (optional)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "worlds")
	if *worldID != "" {
		base = filepath.Join(base, *worldID)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

func worldDirFlag(fs *flag.FlagSet) func() string {
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id")
	return func() string {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -world")
			os.Exit(2)
		}
		return filepath.Join(*dataDir, "worlds", *worldID)
	}
}

func levelCmd(args []string) {
	fs := flag.NewFlagSet("level", flag.ExitOnError)
	worldDir := worldDirFlag(fs)
	headerOnly := fs.Bool("header", false, "print only the header line")
	_ = fs.Parse(args)

	path := filepath.Join(worldDir(), levelFile)
	if *headerOnly {
		h, err := snapshot.ReadHeader(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read header:", err)
			os.Exit(1)
		}
		printJSON(h)
		return
	}
	lv, err := snapshot.ReadLevel(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read level:", err)
		os.Exit(1)
	}
	printJSON(lv)
}

func chunksCmd(args []string) {
	fs := flag.NewFlagSet("chunks", flag.ExitOnError)
	worldDir := worldDirFlag(fs)
	_ = fs.Parse(args)

	db, err := chunkdb.Open(filepath.Join(worldDir(), "chunks"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "open chunk db:", err)
		os.Exit(1)
	}
	defer db.Close()

	keys, err := db.Chunks()
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}
	for _, p := range keys {
		c, ok, err := db.LoadChunk(p)
		if err != nil || !ok {
			fmt.Fprintln(os.Stderr, "load:", p, err)
			continue
		}
		printJSON(struct {
			Chunk     [3]int `json:"chunk"`
			Populated bool   `json:"populated"`
			Digest    string `json:"digest"`
		}{
			Chunk:     [3]int{p.X, p.Y, p.Z},
			Populated: c.Populated(),
			Digest:    fmt.Sprintf("%x", c.Digest()),
		})
	}
}

func rollbackCmd(args []string) {
	fs := flag.NewFlagSet("rollback", flag.ExitOnError)
	worldDir := worldDirFlag(fs)
	aabb := fs.String("aabb", "", "AABB filter: x1,y1,z1:x2,y2,z2 (required)")
	sinceTick := fs.Uint64("since_tick", 0, "rollback changes since tick (inclusive)")
	toTick := fs.Uint64("to_tick", 0, "rollback changes up to tick (inclusive, optional; defaults to level tick)")
	_ = fs.Parse(args)

	dir := worldDir()
	if strings.TrimSpace(*aabb) == "" {
		fmt.Fprintln(os.Stderr, "missing -aabb")
		os.Exit(2)
	}
	min, max, err := parseAABB(*aabb)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad -aabb:", err)
		os.Exit(2)
	}

	lv, err := snapshot.ReadLevel(filepath.Join(dir, levelFile))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read level (run the sim until it saves one):", err)
		os.Exit(2)
	}
	endTick := *toTick
	if endTick == 0 || endTick > lv.Header.Tick {
		endTick = lv.Header.Tick
	}

	entries, err := persistlog.ReadAudit(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read audit:", err)
		os.Exit(1)
	}
	recs := selectRollback(entries, *sinceTick, endTick, min, max)
	if len(recs) == 0 {
		fmt.Println("no matching audit entries; nothing to rollback")
		return
	}

	db, err := chunkdb.Open(filepath.Join(dir, "chunks"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "open chunk db:", err)
		os.Exit(1)
	}
	defer db.Close()

	applied, skipped, err := applyRollback(db, lv.Seed, recs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rollback:", err)
		os.Exit(1)
	}
	fmt.Printf("rollback ok: tick=%d aabb=%s since=%d to=%d entries=%d applied=%d skipped=%d\n",
		lv.Header.Tick, *aabb, *sinceTick, endTick, len(recs), applied, skipped)
}

func parseAABB(s string) (min, max [3]int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return min, max, fmt.Errorf("expected x1,y1,z1:x2,y2,z2")
	}
	a, err := parseVec3(parts[0])
	if err != nil {
		return min, max, err
	}
	b, err := parseVec3(parts[1])
	if err != nil {
		return min, max, err
	}
	for i := 0; i < 3; i++ {
		if a[i] <= b[i] {
			min[i], max[i] = a[i], b[i]
		} else {
			min[i], max[i] = b[i], a[i]
		}
	}
	return min, max, nil
}

func parseVec3(s string) ([3]int, error) {
	var v [3]int
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("expected x,y,z")
	}
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return v, err
		}
		v[i] = n
	}
	return v, nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
