// Package registry resolves invoice registration numbers (T + 13 digits) to
// the legal name of the registered business.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"
)

var (
	// ErrNotFound is returned when no source knows the registration number
	ErrNotFound = errors.New("issuer not found")
	// ErrInvalidNumber is returned for malformed registration numbers
	ErrInvalidNumber = errors.New("invalid registration number")
)

var registrationNumberRe = regexp.MustCompile(`^T\d{13}$`)

// Source tells where an issuer name came from
type Source string

const (
	SourceHistory Source = "history"
	SourceCache   Source = "cache"
	SourceAPI     Source = "api"
	SourceImport  Source = "import"
)

// Issuer is a business registered for qualified invoices
type Issuer struct {
	RegistrationNumber string    `json:"registration_number"`
	Name               string    `json:"name"`
	Source             Source    `json:"source"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// History finds the company name confirmed on the latest saved receipt
// carrying a registration number. It returns "" when there is none.
type History interface {
	CompanyNameFor(registrationNumber string) (string, error)
}

// Cache stores issuers locally
type Cache interface {
	// GetIssuer returns ErrNotFound when the number is not cached
	GetIssuer(registrationNumber string) (*Issuer, error)
	// PutIssuers inserts or replaces issuers
	PutIssuers(issuers []Issuer) error
}

// Fetcher looks an issuer up in a remote registry
type Fetcher interface {
	// FetchIssuerName returns ErrNotFound when the registry has no entry
	FetchIssuerName(ctx context.Context, registrationNumber string) (string, error)
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Resolver looks issuers up in receipt history, then the local cache, then
// the remote registry. Remote hits are cached.
type Resolver struct {
	history    History
	cache      Cache
	fetcher    Fetcher
	timeSource TimeSource
}

// NewResolver creates a Resolver. fetcher may be nil to stay offline.
func NewResolver(history History, cache Cache, fetcher Fetcher) *Resolver {
	return NewResolverWithDeps(history, cache, fetcher, defaultTimeSource{})
}

// NewResolverWithDeps creates a Resolver with a custom time source for testing
func NewResolverWithDeps(history History, cache Cache, fetcher Fetcher, timeSrc TimeSource) *Resolver {
	return &Resolver{
		history:    history,
		cache:      cache,
		fetcher:    fetcher,
		timeSource: timeSrc,
	}
}

// ValidNumber reports whether s is T followed by 13 digits
func ValidNumber(s string) bool {
	return registrationNumberRe.MatchString(s)
}

// Resolve returns the issuer for a registration number
func (r *Resolver) Resolve(ctx context.Context, registrationNumber string) (*Issuer, error) {
	if !ValidNumber(registrationNumber) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNumber, registrationNumber)
	}

	name, err := r.history.CompanyNameFor(registrationNumber)
	if err != nil {
		return nil, fmt.Errorf("searching receipt history: %w", err)
	}
	if name != "" {
		return &Issuer{RegistrationNumber: registrationNumber, Name: name, Source: SourceHistory}, nil
	}

	cached, err := r.cache.GetIssuer(registrationNumber)
	switch {
	case err == nil:
		hit := *cached
		hit.Source = SourceCache
		return &hit, nil
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("reading issuer cache: %w", err)
	}

	if r.fetcher == nil {
		return nil, ErrNotFound
	}

	name, err = r.fetcher.FetchIssuerName(ctx, registrationNumber)
	if err != nil {
		return nil, fmt.Errorf("fetching issuer: %w", err)
	}

	issuer := Issuer{
		RegistrationNumber: registrationNumber,
		Name:               name,
		Source:             SourceAPI,
		UpdatedAt:          r.timeSource.Now(),
	}
	if err := r.cache.PutIssuers([]Issuer{issuer}); err != nil {
		slog.Warn("Failed to cache issuer", "registration_number", registrationNumber, "error", err)
	}
	return &issuer, nil
}
