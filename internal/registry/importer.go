package registry

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// Columns of the NTA bulk download CSV
const (
	numberColumn = 1
	nameColumn   = 18
)

const defaultBatchSize = 1000

// Encoding of an NTA CSV file
type Encoding string

const (
	UTF8     Encoding = "utf8"
	ShiftJIS Encoding = "sjis"
)

// ImportStats counts the rows handled by an import
type ImportStats struct {
	Imported int
	Skipped  int
}

// Importer loads the NTA bulk issuer CSV into the cache
type Importer struct {
	cache      Cache
	batchSize  int
	timeSource TimeSource
}

// NewImporter creates an Importer writing to cache
func NewImporter(cache Cache) *Importer {
	return NewImporterWithDeps(cache, defaultBatchSize, defaultTimeSource{})
}

// NewImporterWithDeps creates an Importer with custom batching and time for testing
func NewImporterWithDeps(cache Cache, batchSize int, timeSrc TimeSource) *Importer {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Importer{
		cache:      cache,
		batchSize:  batchSize,
		timeSource: timeSrc,
	}
}

// ParseEncoding maps a flag value to an Encoding
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "-", "")) {
	case "utf8", "":
		return UTF8, nil
	case "sjis", "shiftjis":
		return ShiftJIS, nil
	}
	return "", fmt.Errorf("unknown encoding %q", s)
}

// Import reads every row of an NTA CSV and stores the issuers in batches.
// Rows without a usable registration number or name (such as a header)
// are skipped.
func (im *Importer) Import(r io.Reader, enc Encoding) (ImportStats, error) {
	var stats ImportStats

	if enc == ShiftJIS {
		r = transform.NewReader(r, japanese.ShiftJIS.NewDecoder())
	}
	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && string(bom) == "\xef\xbb\xbf" {
		br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	now := im.timeSource.Now()
	batch := make([]Issuer, 0, im.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := im.cache.PutIssuers(batch); err != nil {
			return fmt.Errorf("storing issuers: %w", err)
		}
		stats.Imported += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("reading CSV: %w", err)
		}

		issuer, ok := issuerFromRecord(record)
		if !ok {
			stats.Skipped++
			continue
		}
		issuer.Source = SourceImport
		issuer.UpdatedAt = now
		batch = append(batch, issuer)

		if len(batch) >= im.batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}

	if err := flush(); err != nil {
		return stats, err
	}
	return stats, nil
}

func issuerFromRecord(record []string) (Issuer, bool) {
	if len(record) <= nameColumn {
		return Issuer{}, false
	}
	number := strings.TrimSpace(record[numberColumn])
	if !strings.HasPrefix(number, "T") {
		number = "T" + number
	}
	name := strings.TrimSpace(record[nameColumn])
	if !ValidNumber(number) || name == "" {
		return Issuer{}, false
	}
	return Issuer{RegistrationNumber: number, Name: name}, true
}
