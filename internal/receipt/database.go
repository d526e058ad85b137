package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/zombor/receipt-digitizer/internal/registry"
)

const (
	receiptsBucket = "receipts"
	issuersBucket  = "issuers"
)

// ErrNotFound is returned when a receipt does not exist
var ErrNotFound = errors.New("receipt not found")

// DB defines the interface for database operations. It also serves as the
// receipt history and issuer cache of the registry.
type DB interface {
	// SaveReceipt inserts or replaces a receipt
	SaveReceipt(receipt *Receipt) error

	// GetReceipt retrieves a receipt by ID
	GetReceipt(id string) (*Receipt, error)

	// ListReceipts returns all receipts
	ListReceipts() ([]*Receipt, error)

	// DeleteReceipt removes a receipt from the database
	DeleteReceipt(id string) error

	registry.History
	registry.Cache

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{receiptsBucket, issuersBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveReceipt saves a receipt to the database
func (b *BoltDB) SaveReceipt(receipt *Receipt) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(receipt)
		if err != nil {
			return fmt.Errorf("marshaling receipt: %w", err)
		}
		return tx.Bucket([]byte(receiptsBucket)).Put([]byte(receipt.ID), data)
	})
}

// GetReceipt retrieves a receipt by ID
func (b *BoltDB) GetReceipt(id string) (*Receipt, error) {
	var receipt *Receipt
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(receiptsBucket)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &receipt)
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// ListReceipts returns all receipts in key order
func (b *BoltDB) ListReceipts() ([]*Receipt, error) {
	receipts := make([]*Receipt, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(receiptsBucket)).ForEach(func(k, v []byte) error {
			var receipt Receipt
			if err := json.Unmarshal(v, &receipt); err != nil {
				return fmt.Errorf("unmarshaling receipt %s: %w", k, err)
			}
			receipts = append(receipts, &receipt)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt from the database
func (b *BoltDB) DeleteReceipt(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(receiptsBucket)).Delete([]byte(id))
	})
}

// CompanyNameFor returns the company name of the most recently created
// receipt with the registration number, or "" if there is none
func (b *BoltDB) CompanyNameFor(registrationNumber string) (string, error) {
	var (
		name   string
		latest time.Time
	)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(receiptsBucket)).ForEach(func(k, v []byte) error {
			var receipt Receipt
			if err := json.Unmarshal(v, &receipt); err != nil {
				return fmt.Errorf("unmarshaling receipt %s: %w", k, err)
			}
			if receipt.RegistrationNumber != registrationNumber || receipt.CompanyName == "" {
				return nil
			}
			if name == "" || receipt.CreatedAt.After(latest) {
				name = receipt.CompanyName
				latest = receipt.CreatedAt
			}
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

// GetIssuer returns a cached issuer
func (b *BoltDB) GetIssuer(registrationNumber string) (*registry.Issuer, error) {
	var issuer *registry.Issuer
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(issuersBucket)).Get([]byte(registrationNumber))
		if data == nil {
			return registry.ErrNotFound
		}
		return json.Unmarshal(data, &issuer)
	})
	if err != nil {
		return nil, err
	}
	return issuer, nil
}

// PutIssuers stores issuers in a single transaction
func (b *BoltDB) PutIssuers(issuers []registry.Issuer) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(issuersBucket))
		for _, issuer := range issuers {
			data, err := json.Marshal(issuer)
			if err != nil {
				return fmt.Errorf("marshaling issuer: %w", err)
			}
			if err := bucket.Put([]byte(issuer.RegistrationNumber), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
