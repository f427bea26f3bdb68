//go:generate go run go.uber.org/mock/mockgen -source=archive.go -destination=../mocks/mock_archive_repository.go -package=mocks
package repositories

import (
	"context"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// IArchiveRepository is the key-value store the archive is built on.
// List returns keys in lexicographic byte order.
type IArchiveRepository interface {
	Put(ctx context.Context, key string, value []byte) error
	List(ctx context.Context, prefix string) ([]string, error)
}

type ArchiveRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewArchiveRepository(db *badger.DB, log *slog.Logger) ArchiveRepository {
	return ArchiveRepository{db: db, log: log}
}

// Put stores value under key, replacing whatever was there.
func (r ArchiveRepository) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// List walks the keys under prefix without loading values.
// Badger iterates in byte order, which is the order callers rely on.
func (r ArchiveRepository) List(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		options.Prefix = []byte(prefix)
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(options.Prefix); it.ValidForPrefix(options.Prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.log.Debug("Listed archive keys", "prefix", prefix, "count", len(keys))
	return keys, nil
}
