// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// main.go — savectl inspects and maintains the save slots of a savestate
// deployment: list, inspect, delete.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/AndrewDonelson/savestate"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "inspect":
			inspectCmd(os.Args[2:])
			return
		case "delete":
			deleteCmd(os.Args[2:])
			return
		case "list":
			listCmd(os.Args[2:])
			return
		case "version":
			fmt.Println(savestate.Version())
			return
		}
	}
	listCmd(os.Args[1:])
}

// common flags shared by every subcommand
type options struct {
	config    *string
	sqlite    *string
	redis     *string
	userIndex *int
	verbose   *bool
}

func bindOptions(fs *flag.FlagSet) options {
	return options{
		config:    fs.String("config", "", "YAML config file (optional)"),
		sqlite:    fs.String("sqlite", "", "SQLite slot database (overrides config)"),
		redis:     fs.String("redis", "", "Redis address (overrides config)"),
		userIndex: fs.Int("user", -1, "user index (overrides config)"),
		verbose:   fs.Bool("v", false, "log to stderr"),
	}
}

func (o options) open() (*savestate.System, error) {
	var cfg savestate.Config
	if *o.config != "" {
		fc, err := savestate.LoadConfig(*o.config)
		if err != nil {
			return nil, err
		}
		if cfg, err = fc.ToConfig(); err != nil {
			return nil, err
		}
	}
	if *o.sqlite != "" {
		cfg.SQLitePath = *o.sqlite
	}
	if *o.redis != "" {
		cfg.Redis.Addr = *o.redis
	}
	if *o.userIndex >= 0 {
		cfg.UserIndex = *o.userIndex
	}
	if *o.verbose {
		cfg.Logger = stderrLogger{}
	}
	if cfg.SQLitePath == "" && cfg.Redis.Addr == "" && cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("no slot store configured; pass -config, -sqlite or -redis")
	}
	return savestate.New(cfg)
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	opts := bindOptions(fs)
	_ = fs.Parse(args)

	sys := mustOpen(opts)
	defer sys.Close()

	names, err := sys.ListSaveGames(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}
	for _, n := range names {
		fmt.Println(n)
	}
}

func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	opts := bindOptions(fs)
	player := fs.String("player", "", "player name (required)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*player) == "" {
		fmt.Fprintln(os.Stderr, "missing -player")
		os.Exit(2)
	}
	sys := mustOpen(opts)
	defer sys.Close()

	sum, err := inspectSlot(context.Background(), sys, *player)
	if err != nil {
		fmt.Fprintln(os.Stderr, "inspect:", err)
		os.Exit(1)
	}
	out, _ := json.MarshalIndent(sum, "", "  ")
	fmt.Println(string(out))
}

// inspectSlot summarizes the save game of player. A missing slot is
// reported as savestate.ErrSlotNotFound rather than an empty save game.
func inspectSlot(ctx context.Context, sys *savestate.System, player string) (saveSummary, error) {
	ok, err := sys.SaveGameExists(ctx, player)
	if err != nil {
		return saveSummary{}, err
	}
	if !ok {
		return saveSummary{}, fmt.Errorf("%w: %s", savestate.ErrSlotNotFound, player)
	}
	sg, err := sys.GetSaveGame(ctx, player)
	if err != nil {
		return saveSummary{}, err
	}
	return summarize(sg), nil
}

func deleteCmd(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	opts := bindOptions(fs)
	player := fs.String("player", "", "player name (required)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*player) == "" {
		fmt.Fprintln(os.Stderr, "missing -player")
		os.Exit(2)
	}
	sys := mustOpen(opts)
	defer sys.Close()

	if err := sys.DeleteSaveGame(context.Background(), *player); err != nil {
		fmt.Fprintln(os.Stderr, "delete:", err)
		os.Exit(1)
	}
	fmt.Println("deleted", *player)
}

func mustOpen(o options) *savestate.System {
	sys, err := o.open()
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(2)
	}
	return sys
}

// ────────────────────────────────────────────────────────────────────────────
// Output
// ────────────────────────────────────────────────────────────────────────────

type levelSummary struct {
	Level   string   `json:"level"`
	Objects []string `json:"objects"`
	Actors  []string `json:"actors"`
}

type saveSummary struct {
	Player     string         `json:"player"`
	UserIndex  int            `json:"user_index"`
	SavedAt    time.Time      `json:"saved_at"`
	LastLevel  string         `json:"last_level"`
	Pawn       string         `json:"pawn,omitempty"`
	PawnClass  string         `json:"pawn_class,omitempty"`
	Autosaved  []string       `json:"autosaved"`
	Objects    []string       `json:"player_objects"`
	Levels     []levelSummary `json:"levels"`
	References map[string]int `json:"references"`
}

func summarize(sg *savestate.SaveGame) saveSummary {
	s := saveSummary{
		Player:     sg.PlayerName,
		UserIndex:  sg.UserIndex,
		SavedAt:    sg.SavedAt,
		LastLevel:  sg.LastLevel,
		References: make(map[string]int, len(sg.References)),
	}
	if sg.Player.IsSet() {
		s.Pawn = sg.Player.Name
		s.PawnClass = sg.Player.Class
	}
	for _, r := range sg.SavedObjects(savestate.ScopeAutosaved) {
		s.Autosaved = append(s.Autosaved, r.Name)
	}
	for _, r := range sg.SavedObjects(savestate.ScopePlayer) {
		s.Objects = append(s.Objects, r.Name)
	}
	for i := 0; i < sg.LevelsNum(); i++ {
		b := sg.GetLevel(i)
		s.Levels = append(s.Levels, levelSummary{Level: b.Level, Objects: b.SavedObjects, Actors: b.SavedActors})
	}
	for owner, c := range sg.References {
		s.References[owner] = c.Len()
	}
	return s
}

type stderrLogger struct{}

func (stderrLogger) Info(msg string, kv ...any)  { logLine("INFO", msg, kv) }
func (stderrLogger) Warn(msg string, kv ...any)  { logLine("WARN", msg, kv) }
func (stderrLogger) Error(msg string, kv ...any) { logLine("ERROR", msg, kv) }
func (stderrLogger) Debug(msg string, kv ...any) { logLine("DEBUG", msg, kv) }

func logLine(level, msg string, kv []any) {
	var b strings.Builder
	b.WriteString(level)
	b.WriteByte(' ')
	b.WriteString(msg)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	fmt.Fprintln(os.Stderr, b.String())
}
