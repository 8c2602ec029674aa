package wordlist

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Tnhann/GoatDevelopers/internal/domain"
)

// The starter list every new user receives. It is marked as default and
// stays read-only.
var starterList = struct {
	title       string
	description string
	words       []domain.Word
}{
	title:       "İngilizce Kelimeler",
	description: "Günlük kullanılan İngilizce kelimeler",
	words: []domain.Word{
		{Text: "Hello", Translation: "Merhaba", Example: "Hello, how are you?"},
		{Text: "Goodbye", Translation: "Hoşçakal", Example: "Goodbye, see you tomorrow!"},
		{Text: "Thank you", Translation: "Teşekkür ederim", Example: "Thank you for your help."},
	},
}

// EnsureDefaults seeds the starter list for users that have no default
// list yet. Safe to call on every sign-in.
func (s *Service) EnsureDefaults(ctx context.Context, ownerID string) (err error) {
	const existsStmt = `SELECT EXISTS (SELECT 1 FROM lists WHERE owner_id = $1 AND is_default);`

	var exists bool
	if err := s.db.QueryRow(ctx, existsStmt, ownerID).Scan(&exists); err != nil {
		return fmt.Errorf("check default lists: %w", err)
	}
	if exists {
		return nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate list ID: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	const (
		insListStmt = `
INSERT INTO lists (list_id, owner_id, title, description, is_default, create_time)
VALUES ($1, $2, $3, $4, TRUE, $5);`
		insWordStmt = `
INSERT INTO words (word_id, list_id, text, translation, example, create_time)
VALUES ($1, $2, $3, $4, $5, $6);`
	)

	now := time.Now().UTC()
	if _, err = tx.Exec(ctx, insListStmt, id, ownerID, starterList.title, starterList.description, now); err != nil {
		return fmt.Errorf("insert default list: %w", err)
	}

	for _, w := range starterList.words {
		wordID, werr := uuid.NewV7()
		if werr != nil {
			return fmt.Errorf("generate word ID: %w", werr)
		}
		if _, err = tx.Exec(ctx, insWordStmt, wordID, id, w.Text, w.Translation, w.Example, now); err != nil {
			return fmt.Errorf("insert default word: %w", err)
		}
	}

	return tx.Commit(ctx)
}
