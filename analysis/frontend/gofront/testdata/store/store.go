package store

import (
	"database/sql"
	"fmt"
)

// Store is a stock counter backed by a SQL database.
type Store struct {
	db    *sql.DB
	table string
}

// Notifier is called after a change.
type Notifier interface {
	Notify(item int)
}

type logNotifier struct{}

func (logNotifier) Notify(item int) {
	fmt.Println(item)
}

type auditNotifier struct {
	db *sql.DB
}

func (a *auditNotifier) Notify(item int) {
	a.db.Exec("INSERT INTO audit (item) VALUES (?)", item)
}

// Restock adds n items to the stock of item.
func (s *Store) Restock(item, n int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	var count int
	if err := tx.QueryRow("SELECT count FROM stock WHERE item = ?", item).Scan(&count); err != nil {
		return err
	}
	count += n
	switch {
	case count > 100:
		panic("overflow")
	case count < 0:
		count = 0
	}
	query := fmt.Sprintf("UPDATE stock SET count = %d WHERE item = %d", count, item)
	if _, err := tx.Exec(query); err != nil {
		return err
	}
	return tx.Commit()
}

// Reset clears every stock.
func Reset(tx *sql.Tx, items []int) {
	for _, item := range items {
		tx.Exec("DELETE FROM stock WHERE item = ?", item)
	}
}

//txeffect:commit
func finish(tx *sql.Tx) {
	tx.Commit()
}

//txeffect:exclude
func debugDump(db *sql.DB) {
	db.Exec("DELETE FROM stock")
}

//txeffect:frobnicate!
func notifyAll(ns []Notifier, item int) {
	for i := 0; i < len(ns); i++ {
		ns[i].Notify(item)
	}
}
