package main

import (
	"chat-link/repositories"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	dbPath := flag.String("db", "", "Path to badger DB")
	userID := flag.String("user", "", "Print the history of this user instead of the user list")
	flag.Parse()

	if err := run(os.Stdout, *dbPath, *userID); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(out io.Writer, dbPath, userID string) error {
	if dbPath == "" {
		return fmt.Errorf("-db is required")
	}
	// Read only, the server may keep running
	db, err := badger.Open(badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		return fmt.Errorf("error while opening badger: %w", err)
	}
	defer func() { _ = db.Close() }()

	repository := repositories.NewUserRepository(db, logs.GetLoggerFromLevel(slog.LevelError))
	if userID != "" {
		messages, err := repository.GetMessages(userID)
		if err != nil {
			return err
		}
		header(out, fmt.Sprintf("History of %s", userID))
		renderHistory(out, userID, messages)
		return nil
	}

	users, err := repository.ListUsers("")
	if err != nil {
		return err
	}
	histories := make(map[string]int, len(users))
	for _, user := range users {
		messages, err := repository.GetMessages(user.ID)
		if err != nil {
			return err
		}
		histories[user.ID] = len(messages)
	}
	revoked, err := countPrefix(db, "blacklist:")
	if err != nil {
		return err
	}

	header(out, fmt.Sprintf("%d users, %d revoked tokens", len(users), revoked))
	renderUsers(out, users, histories)
	return nil
}

func header(out io.Writer, title string) {
	fmt.Fprintln(out, color.New(color.BgBlack, color.FgGreen).Render(fmt.Sprintf("  ====== %s ======", title)))
}

func countPrefix(db *badger.DB, prefix string) (int, error) {
	count := 0
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}
