// Package service coordinates the lifecycle of a declaration: legacy
// conversion, validation, scoring, persistence, projection and
// notification.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	dErrors "parite/pkg/domain-errors"

	"parite/internal/declaration"
	"parite/internal/declaration/store"
	"parite/internal/domain"
	"parite/internal/legacy"
	"parite/internal/platform/metrics"
	"parite/internal/schema"
	"parite/internal/scoring"
	"parite/internal/siren"
	"parite/internal/validation"
)

// Store persists declaration records.
type Store interface {
	Put(ctx context.Context, siren string, year int, owner string, data domain.Data, modifiedAt time.Time) error
	Get(ctx context.Context, siren string, year int) (declaration.Record, error)
	Owner(ctx context.Context, siren string, year int) (string, error)
	SetOwner(ctx context.Context, siren string, year int, owner string) error
	OwnedBy(ctx context.Context, owner string) ([]declaration.Metadata, error)
}

// Indexer projects published records into the search table.
type Indexer interface {
	Index(ctx context.Context, record declaration.Record) error
}

// Archiver appends published documents to the audit trail.
type Archiver interface {
	Append(ctx context.Context, siren string, year int, data domain.Data, by, ip string) error
}

// Notifier confirms the first publication to the declarant.
type Notifier interface {
	Success(ctx context.Context, to, siren string, year int) error
}

// Service is the write and read entry point for declarations.
type Service struct {
	store    Store
	schema   *schema.Definition
	years    []int
	staff    map[string]bool
	indexer  Indexer
	archiver Archiver
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithIndexer(indexer Indexer) Option {
	return func(s *Service) { s.indexer = indexer }
}

func WithArchiver(archiver Archiver) Option {
	return func(s *Service) { s.archiver = archiver }
}

func WithNotifier(notifier Notifier) Option {
	return func(s *Service) { s.notifier = notifier }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithStaff sets the allow-list of emails bypassing ownership checks.
func WithStaff(emails []string) Option {
	return func(s *Service) {
		for _, email := range emails {
			s.staff[strings.ToLower(email)] = true
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs a Service. years is the closed set of reporting years
// writes are accepted for.
func New(st Store, def *schema.Definition, years []int, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("declaration store is required")
	}
	if def == nil {
		return nil, errors.New("schema definition is required")
	}
	s := &Service{
		store:  st,
		schema: def,
		years:  years,
		staff:  map[string]bool{},
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Years returns the reporting years open for declaration.
func (s *Service) Years() []int {
	return s.years
}

// IsStaff reports whether email belongs to the staff allow-list.
func (s *Service) IsStaff(email string) bool {
	return s.staff[strings.ToLower(email)]
}

// Declare upserts the declaration of (siren, year) on behalf of actor.
// Every write is validated against the schema; a document carrying the
// draft marker stops there, anything else goes through the full pipeline.
// The declarant email is always the authenticated actor, whatever the
// payload carries.
func (s *Service) Declare(ctx context.Context, sirenNumber string, year int, actor string, doc map[string]any, ip string) error {
	if !siren.Valid(sirenNumber) {
		return dErrors.Newf(dErrors.CodeValidation, "Numéro SIREN invalide: %s", sirenNumber)
	}
	if !s.yearOpen(year) {
		return dErrors.Newf(dErrors.CodeBadRequest, "invalid year %d, expected one of %s", year, s.yearList())
	}
	owner, err := s.resolveOwner(ctx, sirenNumber, year, actor)
	if err != nil {
		return err
	}

	data := domain.Data(doc)
	if legacy.IsLegacy(doc) {
		if data, err = legacy.FromLegacy(doc); err != nil {
			return err
		}
	}
	if declared := data.Siren(); declared != "" && declared != sirenNumber {
		return dErrors.Newf(dErrors.CodeBadRequest, "document siren %s does not match %s", declared, sirenNumber)
	}
	if declared, ok := data.Year(); ok && declared != year {
		return dErrors.Newf(dErrors.CodeBadRequest, "document year %d does not match %d", declared, year)
	}

	// the declarant of record is the token email, never the payload's
	data.SetPath("déclarant.email", strings.ToLower(actor))

	modifiedAt := s.now()
	schema.CleanReadOnly(data, s.schema)
	if err := s.schema.Validate(data); err != nil {
		return dErrors.New(dErrors.CodeValidation, err.Error())
	}
	if data.Draft() {
		if err := s.store.Put(ctx, sirenNumber, year, owner, data, modifiedAt); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "save draft")
		}
		return nil
	}

	previous, err := s.store.Get(ctx, sirenNumber, year)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load declaration")
	}
	declaredAt := modifiedAt
	if previous.DeclaredAt != nil {
		declaredAt = *previous.DeclaredAt
	}
	// scoring strips read-only fields itself, so the validation date is
	// stamped after it and before the cross checks that depend on it
	scoring.ComputeNotes(data, s.schema)
	data.SetPath("déclaration.date", declaredAt.Format("2006-01-02T15:04:05+00:00"))
	if err := validation.CrossValidate(data); err != nil {
		return err
	}

	if err := s.store.Put(ctx, sirenNumber, year, owner, data, modifiedAt); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "save declaration")
	}
	s.observePublication()

	record := declaration.Record{
		Siren:      sirenNumber,
		Year:       year,
		Owner:      owner,
		Data:       data,
		ModifiedAt: modifiedAt,
		DeclaredAt: &declaredAt,
	}
	// projection and archive failures degrade, they never undo the write
	if s.indexer != nil {
		if err := s.indexer.Index(ctx, record); err != nil {
			s.logger.Error("index declaration", "siren", sirenNumber, "year", year, "error", err)
			s.observeDegradation()
		}
	}
	if s.archiver != nil {
		if err := s.archiver.Append(ctx, sirenNumber, year, data, actor, ip); err != nil {
			s.logger.Error("archive declaration", "siren", sirenNumber, "year", year, "error", err)
			s.observeDegradation()
		}
	}
	if s.notifier != nil && !previous.Published() {
		if err := s.notifier.Success(ctx, data.Email(), sirenNumber, year); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "send confirmation email")
		}
	}
	return nil
}

// Get returns the document of (siren, year), the draft revision taking
// precedence, restricted to its owner and the staff.
func (s *Service) Get(ctx context.Context, siren string, year int, actor string) (domain.Data, error) {
	record, err := s.store.Get(ctx, siren, year)
	if errors.Is(err, store.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "no declaration for %s in %d", siren, year)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load declaration")
	}
	if record.Published() && !sameEmail(record.Owner, actor) && !s.IsStaff(actor) {
		return nil, s.forbidden(actor, record.Owner)
	}
	return record.Document(), nil
}

// Owned lists the declarations owned by email.
func (s *Service) Owned(ctx context.Context, email string) ([]declaration.Metadata, error) {
	owned, err := s.store.OwnedBy(ctx, email)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list declarations")
	}
	return owned, nil
}

// Own reassigns the owner of (siren, year), a staff-only operation.
func (s *Service) Own(ctx context.Context, siren string, year int, actor, newOwner string) error {
	if !s.IsStaff(actor) {
		return dErrors.New(dErrors.CodeForbidden, "réservé à l'équipe")
	}
	err := s.store.SetOwner(ctx, siren, year, strings.ToLower(newOwner))
	if errors.Is(err, store.ErrNotFound) {
		return dErrors.Newf(dErrors.CodeNotFound, "no declaration for %s in %d", siren, year)
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "reassign owner")
	}
	return nil
}

// resolveOwner enforces the ownership rule on writes and returns the owner
// to store: the current one when the record is already published, the actor
// otherwise.
func (s *Service) resolveOwner(ctx context.Context, siren string, year int, actor string) (string, error) {
	owner, err := s.store.Owner(ctx, siren, year)
	if errors.Is(err, store.ErrNotFound) {
		return strings.ToLower(actor), nil
	}
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "load owner")
	}
	if !sameEmail(owner, actor) && !s.IsStaff(actor) {
		return "", s.forbidden(actor, owner)
	}
	return owner, nil
}

func (s *Service) forbidden(actor, owner string) error {
	return dErrors.Newf(dErrors.CodeForbidden,
		"le déclarant %s n'est pas le propriétaire de cette déclaration (%s)", actor, obfuscate(owner))
}

// obfuscate keeps enough of the owner email to be recognizable without
// disclosing it.
func obfuscate(email string) string {
	local, domainPart, found := strings.Cut(email, "@")
	if !found || local == "" {
		return "***"
	}
	return local[:1] + "***@" + domainPart
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(a, b)
}

func (s *Service) yearOpen(year int) bool {
	for _, y := range s.years {
		if y == year {
			return true
		}
	}
	return false
}

func (s *Service) yearList() string {
	parts := make([]string, len(s.years))
	for i, y := range s.years {
		parts[i] = fmt.Sprint(y)
	}
	return strings.Join(parts, ", ")
}

func (s *Service) observePublication() {
	if s.metrics != nil {
		s.metrics.DeclarationsPublished.Inc()
	}
}

func (s *Service) observeDegradation() {
	if s.metrics != nil {
		s.metrics.ProjectionDegradations.Inc()
	}
}
