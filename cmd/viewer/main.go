package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"dm-relay/internal"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
)

// viewer dumps the persisted state of a running (or stopped) relay:
// the user directory and the conversation log, rendered as tables.
// Optionally serves the HTML inspector for browsing by key prefix.
func main() {
	inspect := flag.Bool("inspect", false, "also serve the HTML inspector and block")
	flag.Parse()

	// 1. Load config
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// 2. Open Badger in read-only mode.
	// BypassLockGuard allows opening while the server holds the lock.
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	printUsers(db)
	printMessages(db)

	if *inspect && config.DebugPort != nil {
		fmt.Printf("Viewer inspector at http://localhost:%d/inspect\n", *config.DebugPort)
		internal.StartDebugServer(db, *config.DebugPort, "/inspect", internal.DefaultMapper, nil)
		select {}
	}
}

// Local record shapes, independent from the repositories package: the
// viewer must keep decoding old stores even while the server-side
// structs move.
type diskUser struct {
	ID        string `cbor:"1,keyasint"`
	Username  string `cbor:"2,keyasint"`
	Email     string `cbor:"3,keyasint"`
	Status    string `cbor:"5,keyasint"`
	CreatedAt int64  `cbor:"6,keyasint"`
}

type diskMessage struct {
	ID         string `cbor:"1,keyasint"`
	SenderID   string `cbor:"2,keyasint"`
	ReceiverID string `cbor:"3,keyasint"`
	Body       string `cbor:"4,keyasint"`
	At         int64  `cbor:"6,keyasint"`
}

func printUsers(db *badger.DB) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Username", "Email", "Status", "Created"})

	_ = db.View(func(txn *badger.Txn) error {
		prefix := []byte("user:id:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var du diskUser
			err := it.Item().Value(func(val []byte) error {
				return cbor.Unmarshal(val, &du)
			})
			if err != nil {
				continue
			}
			table.Append([]string{
				du.ID, du.Username, du.Email, du.Status,
				time.Unix(du.CreatedAt, 0).UTC().Format(time.DateTime),
			})
		}
		return nil
	})

	fmt.Println("Users:")
	table.Render()
}

func printMessages(db *badger.DB) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Time", "Sender", "Receiver", "Body"})

	_ = db.View(func(txn *badger.Txn) error {
		prefix := []byte("msg:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var dm diskMessage
			err := it.Item().Value(func(val []byte) error {
				return cbor.Unmarshal(val, &dm)
			})
			if err != nil {
				continue
			}
			table.Append([]string{
				time.Unix(0, dm.At).UTC().Format(time.DateTime),
				dm.SenderID[:8], dm.ReceiverID[:8], dm.Body,
			})
		}
		return nil
	})

	fmt.Println("Messages:")
	table.Render()
}
