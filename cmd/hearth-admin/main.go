// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// hearth-admin is an operator tool for inspecting and administering a
// Hearth data directory: listing rooms and users, dumping room logs
// and state, resolving events, and registering accounts. It opens the
// store directly, so it must not run concurrently with a serving
// process against the same database.
//
// Usage:
//
//	hearth-admin [--config hearth.yaml] <command> [arguments]
//
// Commands:
//
//	rooms                     list room IDs
//	log <room> [--since N]    print a room's events as JSON lines
//	state <room>              print a room's current state
//	event <event-id>          print one event
//	counter                   print the global sequence position
//	users                     list registered user IDs
//	register <user> <pass>    create a local account
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/hearth/accounts"
	"github.com/bureau-foundation/hearth/identity"
	"github.com/bureau-foundation/hearth/lib/codec"
	"github.com/bureau-foundation/hearth/lib/config"
	"github.com/bureau-foundation/hearth/lib/ref"
	"github.com/bureau-foundation/hearth/lib/version"
	"github.com/bureau-foundation/hearth/roomgraph"
	"github.com/bureau-foundation/hearth/storage"
	"github.com/bureau-foundation/hearth/storage/sequence"
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("hearth-admin")
		return 0
	}

	var configPath string
	var since uint64
	var limit int

	flagSet := pflag.NewFlagSet("hearth-admin", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to hearth.yaml (default: $HEARTH_CONFIG)")
	flagSet.Uint64Var(&since, "since", 0, "stream ordinal to read the log from (log command)")
	flagSet.IntVar(&limit, "limit", 0, "maximum events to print, 0 for all (log command)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	arguments := flagSet.Args()
	if len(arguments) == 0 {
		fmt.Fprintln(os.Stderr, "error: no command; see hearth-admin --help")
		return 2
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	if err := execute(context.Background(), cfg, arguments, since, limit); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func execute(ctx context.Context, cfg *config.Config, arguments []string, since uint64, limit int) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	store, err := storage.OpenSQLite(storage.SQLiteConfig{
		Path:     cfg.Storage.Database,
		PoolSize: cfg.Storage.PoolSize,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	origin, err := cfg.Origin()
	if err != nil {
		return err
	}
	_, privateKey, _, err := identity.LoadOrGenerateKeypair(cfg.Paths.Keys)
	if err != nil {
		return fmt.Errorf("loading signing key: %w", err)
	}
	signer, err := identity.NewSigner(origin, privateKey)
	if err != nil {
		return err
	}

	graph, err := roomgraph.New(roomgraph.Config{
		Store:    store,
		Sequence: sequence.New(store),
		Signer:   signer,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	directory := accounts.NewDirectory(store, graph, logger)

	command, rest := arguments[0], arguments[1:]
	switch command {
	case "rooms":
		return listRooms(ctx, graph)
	case "log":
		if len(rest) != 1 {
			return fmt.Errorf("usage: hearth-admin log <room> [--since N] [--limit N]")
		}
		return printLog(ctx, graph, rest[0], since, limit)
	case "state":
		if len(rest) != 1 {
			return fmt.Errorf("usage: hearth-admin state <room>")
		}
		return printState(ctx, graph, rest[0])
	case "event":
		if len(rest) != 1 {
			return fmt.Errorf("usage: hearth-admin event <event-id>")
		}
		return printEvent(ctx, graph, rest[0])
	case "counter":
		ordinal, err := sequence.New(store).Current(ctx)
		if err != nil {
			return err
		}
		fmt.Println(ordinal)
		return nil
	case "users":
		return listUsers(ctx, directory)
	case "register":
		if len(rest) != 2 {
			return fmt.Errorf("usage: hearth-admin register <user> <password>")
		}
		return register(ctx, directory, rest[0], rest[1])
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func listRooms(ctx context.Context, graph *roomgraph.Graph) error {
	rooms, err := graph.Rooms(ctx)
	if err != nil {
		return err
	}
	for _, roomID := range rooms {
		fmt.Println(roomID)
	}
	return nil
}

func printLog(ctx context.Context, graph *roomgraph.Graph, room string, since uint64, limit int) error {
	roomID, err := ref.ParseRoomID(room)
	if err != nil {
		return err
	}
	events, err := graph.Since(ctx, roomID, since)
	if err != nil {
		return err
	}
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	encoder := json.NewEncoder(os.Stdout)
	for _, pdu := range events {
		form, err := jsonForm(pdu)
		if err != nil {
			return err
		}
		if err := encoder.Encode(form); err != nil {
			return err
		}
	}
	return nil
}

// jsonForm rebuilds a stored event as generic maps and strings, so
// the JSON output carries readable content instead of base64-wrapped
// CBOR.
func jsonForm(pdu *roomgraph.PDU) (any, error) {
	encoded, err := codec.Marshal(pdu)
	if err != nil {
		return nil, err
	}
	var form any
	if err := codec.Unmarshal(encoded, &form); err != nil {
		return nil, err
	}
	return form, nil
}

func printState(ctx context.Context, graph *roomgraph.Graph, room string) error {
	roomID, err := ref.ParseRoomID(room)
	if err != nil {
		return err
	}
	state, err := graph.State(ctx, roomID)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(os.Stdout)
	for _, pdu := range state {
		form, err := jsonForm(pdu)
		if err != nil {
			return err
		}
		if err := encoder.Encode(form); err != nil {
			return err
		}
	}
	return nil
}

func printEvent(ctx context.Context, graph *roomgraph.Graph, event string) error {
	eventID, err := ref.ParseEventID(event)
	if err != nil {
		return err
	}
	pdu, ok, err := graph.Event(ctx, eventID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("event %s not found", eventID)
	}
	form, err := jsonForm(pdu)
	if err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(form, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}

func listUsers(ctx context.Context, directory *accounts.Directory) error {
	users, err := directory.All(ctx)
	if err != nil {
		return err
	}
	for _, user := range users {
		fmt.Println(user)
	}
	return nil
}

func register(ctx context.Context, directory *accounts.Directory, user, password string) error {
	userID, err := ref.ParseUserID(user)
	if err != nil {
		return err
	}
	hash, err := accounts.HashPassword(password)
	if err != nil {
		return err
	}
	if err := directory.Register(ctx, userID, hash); err != nil {
		return err
	}
	fmt.Printf("registered %s\n", userID)
	return nil
}
