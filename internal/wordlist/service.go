package wordlist

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Tnhann/GoatDevelopers/internal/domain"
	"github.com/Tnhann/GoatDevelopers/internal/errors"
	"github.com/Tnhann/GoatDevelopers/internal/event"
)

type Config struct {
	DB       *pgxpool.Pool
	EventBus *event.Bus
}

// Service owns word lists and their words.
type Service struct {
	db *pgxpool.Pool
	eb *event.Bus
}

func NewService(c Config) *Service {
	return &Service{
		db: c.DB,
		eb: c.EventBus,
	}
}

type CreateListRequest struct {
	OwnerID     string
	Title       string
	Description string
}

// CreateList creates a new, empty user-owned list.
func (s *Service) CreateList(ctx context.Context, req CreateListRequest) (*domain.WordList, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("list title is required"))
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate list ID: %w", err)
	}

	l := &domain.WordList{
		ListID:      id.String(),
		OwnerID:     req.OwnerID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		CreateTime:  time.Now().UTC(),
	}

	const stmt = `
INSERT INTO lists (list_id, owner_id, title, description, is_default, create_time)
VALUES ($1, $2, $3, $4, FALSE, $5);`

	if _, err := s.db.Exec(ctx, stmt, l.ListID, l.OwnerID, l.Title, l.Description, l.CreateTime); err != nil {
		return nil, fmt.Errorf("insert list: %w", err)
	}

	s.eb.Publish(ctx, domain.EventListCreated{List: *l})

	return l, nil
}

// Lists returns all lists owned by the user, word counts included.
func (s *Service) Lists(ctx context.Context, ownerID string) ([]domain.WordList, error) {
	const stmt = `
SELECT l.list_id, l.owner_id, l.title, l.description, l.is_default, l.create_time,
       (SELECT COUNT(*) FROM words w WHERE w.list_id = l.list_id) AS word_count
FROM lists l
WHERE l.owner_id = $1
ORDER BY l.create_time;`

	rows, err := s.db.Query(ctx, stmt, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query lists: %w", err)
	}

	lists, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.WordList, error) {
		var l domain.WordList
		err := r.Scan(&l.ListID, &l.OwnerID, &l.Title, &l.Description, &l.IsDefault, &l.CreateTime, &l.WordCount)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect lists: %w", err)
	}

	return lists, nil
}

// List returns a single list by ID.
func (s *Service) List(ctx context.Context, listID string) (domain.WordList, error) {
	const stmt = `
SELECT l.list_id, l.owner_id, l.title, l.description, l.is_default, l.create_time,
       (SELECT COUNT(*) FROM words w WHERE w.list_id = l.list_id) AS word_count
FROM lists l
WHERE l.list_id = $1;`

	var l domain.WordList
	err := s.db.QueryRow(ctx, stmt, listID).
		Scan(&l.ListID, &l.OwnerID, &l.Title, &l.Description, &l.IsDefault, &l.CreateTime, &l.WordCount)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return domain.WordList{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("list not found: %s", listID))
	}
	if err != nil {
		return domain.WordList{}, fmt.Errorf("query list: %w", err)
	}

	return l, nil
}

// DeleteList removes a user-owned list and its words. Default lists cannot
// be deleted.
func (s *Service) DeleteList(ctx context.Context, ownerID, listID string) (err error) {
	if _, err := s.requireEditable(ctx, ownerID, listID); err != nil {
		return err
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

	if _, err = tx.Exec(ctx, `DELETE FROM words WHERE list_id = $1;`, listID); err != nil {
		return fmt.Errorf("delete words: %w", err)
	}
	if _, err = tx.Exec(ctx, `DELETE FROM lists WHERE list_id = $1;`, listID); err != nil {
		return fmt.Errorf("delete list: %w", err)
	}

	return tx.Commit(ctx)
}

type AddWordRequest struct {
	OwnerID     string
	ListID      string
	Text        string
	Translation string
	Example     string
}

// AddWord appends a word to a user-owned, non-default list.
func (s *Service) AddWord(ctx context.Context, req AddWordRequest) (*domain.Word, error) {
	if strings.TrimSpace(req.Text) == "" || strings.TrimSpace(req.Translation) == "" {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("word text and translation are required"))
	}

	if _, err := s.requireEditable(ctx, req.OwnerID, req.ListID); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate word ID: %w", err)
	}

	w := &domain.Word{
		WordID:      id.String(),
		ListID:      req.ListID,
		Text:        strings.TrimSpace(req.Text),
		Translation: strings.TrimSpace(req.Translation),
		Example:     strings.TrimSpace(req.Example),
	}

	const stmt = `
INSERT INTO words (word_id, list_id, text, translation, example, create_time)
VALUES ($1, $2, $3, $4, $5, $6);`

	if _, err := s.db.Exec(ctx, stmt, w.WordID, w.ListID, w.Text, w.Translation, w.Example, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("insert word: %w", err)
	}

	return w, nil
}

type UpdateWordRequest struct {
	OwnerID     string
	ListID      string
	WordID      string
	Translation string
	Example     string
}

// UpdateWord edits a word's translation and example. The word's text is
// its identity and stays immutable.
func (s *Service) UpdateWord(ctx context.Context, req UpdateWordRequest) (*domain.Word, error) {
	if strings.TrimSpace(req.Translation) == "" {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("word translation is required"))
	}

	if _, err := s.requireEditable(ctx, req.OwnerID, req.ListID); err != nil {
		return nil, err
	}

	const stmt = `
UPDATE words SET translation = $1, example = $2
WHERE word_id = $3 AND list_id = $4
RETURNING word_id, list_id, text, translation, example;`

	var w domain.Word
	err := s.db.QueryRow(ctx, stmt,
		strings.TrimSpace(req.Translation), strings.TrimSpace(req.Example), req.WordID, req.ListID).
		Scan(&w.WordID, &w.ListID, &w.Text, &w.Translation, &w.Example)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("word not found: %s", req.WordID))
	}
	if err != nil {
		return nil, fmt.Errorf("update word: %w", err)
	}

	return &w, nil
}

// DeleteWord removes a word from a user-owned, non-default list.
func (s *Service) DeleteWord(ctx context.Context, ownerID, listID, wordID string) error {
	if _, err := s.requireEditable(ctx, ownerID, listID); err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM words WHERE word_id = $1 AND list_id = $2;`, wordID, listID)
	if err != nil {
		return fmt.Errorf("delete word: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("word not found: %s", wordID))
	}

	return nil
}

// Words returns all words in a list.
func (s *Service) Words(ctx context.Context, listID string) ([]domain.Word, error) {
	const stmt = `
SELECT word_id, list_id, text, translation, example
FROM words
WHERE list_id = $1
ORDER BY create_time;`

	rows, err := s.db.Query(ctx, stmt, listID)
	if err != nil {
		return nil, fmt.Errorf("query words: %w", err)
	}

	words, err := pgx.CollectRows(rows, scanWord)
	if err != nil {
		return nil, fmt.Errorf("collect words: %w", err)
	}

	return words, nil
}

// WordsExcludingList returns all of the user's words outside the given
// list. Feeds the quiz distractor widen-search.
func (s *Service) WordsExcludingList(ctx context.Context, ownerID, listID string) ([]domain.Word, error) {
	const stmt = `
SELECT w.word_id, w.list_id, w.text, w.translation, w.example
FROM words w
JOIN lists l ON l.list_id = w.list_id
WHERE l.owner_id = $1 AND w.list_id <> $2;`

	rows, err := s.db.Query(ctx, stmt, ownerID, listID)
	if err != nil {
		return nil, fmt.Errorf("query words excluding list: %w", err)
	}

	words, err := pgx.CollectRows(rows, scanWord)
	if err != nil {
		return nil, fmt.Errorf("collect words: %w", err)
	}

	return words, nil
}

func scanWord(r pgx.CollectableRow) (domain.Word, error) {
	var w domain.Word
	err := r.Scan(&w.WordID, &w.ListID, &w.Text, &w.Translation, &w.Example)
	return w, err
}

func (s *Service) requireEditable(ctx context.Context, ownerID, listID string) (domain.WordList, error) {
	l, err := s.List(ctx, listID)
	if err != nil {
		return domain.WordList{}, err
	}
	if l.OwnerID != ownerID {
		return domain.WordList{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("list not found: %s", listID))
	}
	if l.IsDefault {
		return domain.WordList{}, errors.New(errors.CodePermissionDenied,
			errors.WithMessagef("default lists are read-only"))
	}

	return l, nil
}
