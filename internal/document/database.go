package document

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

const documentsBucket = "documents"

// DB defines the persistence operations for documents. All reads and
// writes are scoped to a user so accounts stay isolated on a shared
// device.
type DB interface {
	// SaveDocument inserts or replaces a document.
	SaveDocument(doc *Document) error

	// GetDocument retrieves one document belonging to userID.
	GetDocument(userID, id string) (*Document, error)

	// ListDocuments returns every document belonging to userID,
	// newest first.
	ListDocuments(userID string) ([]*Document, error)

	// DeleteDocument removes one document belonging to userID.
	DeleteDocument(userID, id string) error

	// DeleteAllForUser wipes a user's documents, used on sign-out.
	DeleteAllForUser(userID string) error

	// Close closes the database.
	Close() error
}

// BoltDB implements DB on top of a single bbolt file. Keys are
// "userID/documentID" so one prefix scan covers a user.
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB opens (creating if needed) the database at path.
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(documentsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltDB{db: db}, nil
}

func documentKey(userID, id string) []byte {
	return []byte(userID + "/" + id)
}

// SaveDocument inserts or replaces a document.
func (b *BoltDB) SaveDocument(doc *Document) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(documentsBucket))
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshaling document: %w", err)
		}
		return bucket.Put(documentKey(doc.UserID, doc.ID), data)
	})
}

// GetDocument retrieves one document belonging to userID.
func (b *BoltDB) GetDocument(userID, id string) (*Document, error) {
	var doc *Document
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(documentsBucket))
		data := bucket.Get(documentKey(userID, id))
		if data == nil {
			return fmt.Errorf("document not found: %s", id)
		}
		return json.Unmarshal(data, &doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments returns every document belonging to userID, newest first.
func (b *BoltDB) ListDocuments(userID string) ([]*Document, error) {
	docs := make([]*Document, 0)
	prefix := []byte(userID + "/")
	err := b.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(documentsBucket)).Cursor()
		for k, v := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = c.Next() {
			var doc Document
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("unmarshaling document: %w", err)
			}
			docs = append(docs, &doc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(docs)
	return docs, nil
}

// DeleteDocument removes one document belonging to userID.
func (b *BoltDB) DeleteDocument(userID, id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(documentsBucket)).Delete(documentKey(userID, id))
	})
}

// DeleteAllForUser wipes a user's documents.
func (b *BoltDB) DeleteAllForUser(userID string) error {
	prefix := []byte(userID + "/")
	return b.db.Update(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(documentsBucket)).Cursor()
		for k, _ := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the database.
func (b *BoltDB) Close() error {
	return b.db.Close()
}

func sortNewestFirst(docs []*Document) {
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
}
