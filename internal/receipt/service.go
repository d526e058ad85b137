package receipt

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/receipt-digitizer/internal/registry"
	"github.com/zombor/receipt-digitizer/internal/scanning"
)

var (
	// ErrScanFailed is returned when the OCR engine cannot read an image
	ErrScanFailed = errors.New("scanning receipt failed")
	// ErrInvalidImage is returned when an upload cannot be decoded for rotation
	ErrInvalidImage = errors.New("invalid image")
)

// IDGenerator generates unique IDs for receipts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// IssuerResolver resolves registration numbers to company names
type IssuerResolver interface {
	Resolve(ctx context.Context, registrationNumber string) (*registry.Issuer, error)
}

// uuidGenerator generates random UUIDs
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Upload is an image received from a client
type Upload struct {
	Filename    string
	Data        []byte
	ContentType string
	// Rotate turns the image clockwise by this many degrees before scanning
	Rotate int
}

// Service handles receipt operations
type Service struct {
	db          DB
	scanner     scanning.Scanner
	storage     Storage
	issuers     IssuerResolver
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with UUID IDs and the wall clock.
// issuers may be nil to skip registration number lookups.
func NewService(db DB, scanner scanning.Scanner, storage Storage, issuers IssuerResolver) *Service {
	return NewServiceWithDeps(db, scanner, storage, issuers, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, storage Storage, issuers IssuerResolver, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		issuers:     issuers,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// rotate applies the requested rotation to an upload
func rotate(up Upload) (Upload, error) {
	if up.Rotate%360 == 0 {
		return up, nil
	}
	data, contentType, err := scanning.Rotate(up.Data, up.ContentType, up.Rotate)
	if err != nil {
		return up, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	up.Data = data
	up.ContentType = contentType
	up.Rotate = 0
	return up, nil
}

// Scan reads an image and returns the extracted fields without saving anything
func (s *Service) Scan(ctx context.Context, up Upload) (*Draft, error) {
	up, err := rotate(up)
	if err != nil {
		return nil, err
	}
	return s.scan(ctx, up)
}

func (s *Service) scan(ctx context.Context, up Upload) (*Draft, error) {
	result, err := s.scanner.ScanReceipt(ctx, up.Data, up.ContentType)
	if err != nil {
		slog.Error("Failed to scan receipt",
			"filename", up.Filename,
			"content_type", up.ContentType,
			"file_size", len(up.Data),
			"error", err,
		)
		return nil, fmt.Errorf("%w: %w", ErrScanFailed, err)
	}

	draft := &Draft{
		Fields:  FieldsFromResult(*result),
		RawText: result.RawText,
	}
	if result.HasRegistrationNumber() {
		s.resolveIssuer(ctx, draft)
	}
	return draft, nil
}

// resolveIssuer replaces the OCR company name with the registered one when
// the registration number is known
func (s *Service) resolveIssuer(ctx context.Context, draft *Draft) {
	if s.issuers == nil {
		return
	}
	issuer, err := s.issuers.Resolve(ctx, draft.RegistrationNumber)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		slog.Debug("Issuer not registered", "registration_number", draft.RegistrationNumber)
		return
	case err != nil:
		slog.Warn("Failed to resolve issuer", "registration_number", draft.RegistrationNumber, "error", err)
		return
	}
	draft.CompanyName = issuer.Name
	draft.IssuerSource = issuer.Source
}

// ProcessReceipt scans an image, applies the non-empty overrides on top of
// the extracted fields, and saves the image and record
func (s *Service) ProcessReceipt(ctx context.Context, up Upload, overrides Fields) (*Receipt, error) {
	up, err := rotate(up)
	if err != nil {
		return nil, err
	}

	draft, err := s.scan(ctx, up)
	if err != nil {
		return nil, err
	}

	fields := draft.Fields.Override(overrides)
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()
	hash := sha256.Sum256(up.Data)

	savedPath, err := s.storage.Save(storedFilename(id, fields, extensionFor(up.Filename, up.ContentType)), up.Data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	receipt := &Receipt{
		ID:          id,
		Filename:    savedPath,
		ContentType: up.ContentType,
		ImageHash:   hex.EncodeToString(hash[:]),
		RawText:     draft.RawText,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	receipt.apply(fields)

	if err := s.db.SaveReceipt(receipt); err != nil {
		// Clean up file if database save fails
		if delErr := s.storage.Delete(savedPath); delErr != nil {
			slog.Warn("Failed to delete file", "filename", savedPath, "error", delErr)
		}
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}

	slog.Info("Saved receipt", "id", id, "filename", savedPath)
	return receipt, nil
}

// UpdateReceipt replaces the editable fields of a receipt and renames its
// file to match
func (s *Service) UpdateReceipt(id string, fields Fields) (*Receipt, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}

	oldName := receipt.Filename
	newName := storedFilename(receipt.ID, fields, filepath.Ext(oldName))
	renamed, err := s.storage.Rename(oldName, newName)
	if err != nil {
		// Keep the record consistent with the file that still exists
		slog.Warn("Failed to rename file", "from", oldName, "to", newName, "error", err)
	} else {
		receipt.Filename = renamed
	}

	receipt.apply(fields)
	receipt.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveReceipt(receipt); err != nil {
		// The stored record still names the old file
		if receipt.Filename != oldName {
			if _, renameErr := s.storage.Rename(receipt.Filename, oldName); renameErr != nil {
				slog.Error("Failed to restore file name", "from", receipt.Filename, "to", oldName, "error", renameErr)
			}
		}
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}
	return receipt, nil
}

// GetReceipt retrieves a receipt by ID
func (s *Service) GetReceipt(id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns receipts newest first, dropping records whose date,
// amount, registration number and company repeat an earlier one. Undated
// receipts come last.
func (s *Service) ListReceipts() ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}

	sort.SliceStable(receipts, func(i, j int) bool {
		a, b := receipts[i], receipts[j]
		if a.Date != b.Date {
			if a.Date == "" || b.Date == "" {
				return b.Date == ""
			}
			return a.Date > b.Date
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	seen := make(map[string]bool, len(receipts))
	unique := make([]*Receipt, 0, len(receipts))
	for _, r := range receipts {
		key := r.dedupeKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, r)
	}
	return unique, nil
}

// DeleteReceipt removes a receipt and its file
func (s *Service) DeleteReceipt(id string) error {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return fmt.Errorf("getting receipt for deletion: %w", err)
	}

	if err := s.storage.Delete(receipt.Filename); err != nil {
		// Log error but continue with database deletion
		slog.Warn("Failed to delete file", "filename", receipt.Filename, "error", err)
	}

	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt from database: %w", err)
	}
	return nil
}

// GetReceiptFile retrieves the file data for a receipt
func (s *Service) GetReceiptFile(id string) ([]byte, string, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}

	data, err := s.storage.Get(receipt.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}

	return data, receipt.ContentType, nil
}

// Export writes the listed receipts in the requested format
func (s *Service) Export(w io.Writer, format ExportFormat) error {
	receipts, err := s.ListReceipts()
	if err != nil {
		return err
	}
	switch format {
	case FormatXLSX:
		return writeXLSX(w, receipts)
	default:
		return writeCSV(w, receipts)
	}
}

// LookupIssuer resolves a registration number
func (s *Service) LookupIssuer(ctx context.Context, registrationNumber string) (*registry.Issuer, error) {
	if s.issuers == nil {
		return nil, registry.ErrNotFound
	}
	issuer, err := s.issuers.Resolve(ctx, registrationNumber)
	if err != nil {
		return nil, fmt.Errorf("resolving issuer: %w", err)
	}
	return issuer, nil
}
