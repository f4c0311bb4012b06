// Package appstore owns the canonical collection of club-membership
// applications: the review workflow, the authorization-filtered views,
// and the synchronization of the collection across contexts through the
// blob store and the in-process change bus.
package appstore

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"ppmkconnect-core/internal/authz"
	"ppmkconnect-core/internal/blob"
	"ppmkconnect-core/internal/bus"
	"ppmkconnect-core/internal/domain"
	"ppmkconnect-core/internal/logger"
)

// DefaultKey is the blob key the application collection is persisted
// under.
const DefaultKey = "club_applications"

// Notifier delivers fire-and-forget user notifications. The store never
// depends on delivery succeeding.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}

// Store is the application state store. Every mutation is one logical
// transaction: validate, mutate the in-memory collection, persist to the
// blob store, publish on the change bus. If persistence fails the
// in-memory mutation is rolled back and ErrPersistence is returned.
type Store struct {
	key      string
	blob     blob.Store
	bus      *bus.Bus
	notifier Notifier
	now      func() time.Time
	newID    func() string

	mu   sync.Mutex
	apps []domain.Application
}

// New wires a store to its collaborators. notifier may be nil.
func New(blobStore blob.Store, changeBus *bus.Bus, notifier Notifier) *Store {
	return &Store{
		key:      DefaultKey,
		blob:     blobStore,
		bus:      changeBus,
		notifier: notifier,
		// UTC strips the monotonic clock reading so timestamps compare
		// equal after a JSON round trip through the blob store.
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// Load reads the persisted snapshot into memory. An absent key is the
// empty collection; a corrupt snapshot is logged and treated as empty so
// startup never fails on bad data.
func (s *Store) Load(ctx context.Context) error {
	data, found, err := s.blob.Read(ctx, s.key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	apps := []domain.Application{}
	if found {
		if err := json.Unmarshal(data, &apps); err != nil {
			logger.Warn("corrupt application snapshot, starting empty", "key", s.key, "error", err)
			apps = []domain.Application{}
		}
	}
	s.mu.Lock()
	s.apps = apps
	s.mu.Unlock()
	return nil
}

// Watch subscribes the store to external blob writes so snapshots from
// other contexts are adopted as they land. The returned function stops
// watching.
func (s *Store) Watch() (stop func()) {
	return s.blob.Subscribe(func(key string, data []byte) {
		if key != s.key {
			return
		}
		var apps []domain.Application
		if err := json.Unmarshal(data, &apps); err != nil {
			// Corrupt external data must never block the local
			// workflow; keep the last known good collection.
			logger.Warn("corrupt external snapshot ignored", "key", key, "error", err)
			return
		}
		s.adopt(apps)
	})
}

// Reconcile compares the persisted snapshot against memory and adopts
// the persisted one when they differ. Safety net for missed change
// notifications; idempotent, safe to trigger redundantly.
func (s *Store) Reconcile(ctx context.Context) {
	data, found, err := s.blob.Read(ctx, s.key)
	if err != nil {
		logger.Warn("reconciliation read failed", "key", s.key, "error", err)
		return
	}
	apps := []domain.Application{}
	if found {
		if err := json.Unmarshal(data, &apps); err != nil {
			logger.Warn("corrupt persisted snapshot ignored", "key", s.key, "error", err)
			return
		}
	}
	s.adopt(apps)
}

// adopt atomically replaces the in-memory collection with the snapshot
// and republishes, unless the snapshot is structurally identical.
func (s *Store) adopt(apps []domain.Application) {
	s.mu.Lock()
	if reflect.DeepEqual(s.apps, apps) {
		s.mu.Unlock()
		return
	}
	s.apps = apps
	snapshot := cloneApps(s.apps)
	s.mu.Unlock()
	s.bus.Publish(snapshot)
}

// Submit creates a new pending application for the caller. The applicant
// identity snapshot is taken from the caller, not the draft, so nobody
// submits on someone else's behalf.
func (s *Store) Submit(ctx context.Context, caller domain.CurrentUser, draft domain.ApplicationDraft) (*domain.Application, error) {
	s.mu.Lock()
	for _, a := range s.apps {
		if a.ApplicantID == caller.ID && a.ClubID == draft.ClubID && a.Status == domain.ApplicationStatusPending {
			s.mu.Unlock()
			s.notify(ctx, domain.Notification{
				Title:          "Application not submitted",
				Message:        fmt.Sprintf("You already have a pending application for %s.", draft.ClubName),
				Kind:           domain.NotificationKindError,
				RecipientEmail: caller.Email,
			})
			return nil, ErrDuplicatePending
		}
	}

	app := domain.Application{
		ID:             s.newID(),
		ApplicantID:    caller.ID,
		ApplicantName:  caller.Name,
		ApplicantEmail: caller.Email,
		ClubID:         draft.ClubID,
		ClubName:       draft.ClubName,
		Status:         domain.ApplicationStatusPending,
		AppliedAt:      s.now(),
		Motivation:     draft.Motivation,
		Experience:     draft.Experience,
		Skills:         append([]string(nil), draft.Skills...),
		AdditionalInfo: draft.AdditionalInfo,
	}

	prev := s.apps
	s.apps = append(cloneApps(s.apps), app)
	if err := s.persistLocked(ctx); err != nil {
		s.apps = prev
		s.mu.Unlock()
		s.notify(ctx, domain.Notification{
			Title:          "Application not submitted",
			Message:        "Your application could not be saved. Please try again.",
			Kind:           domain.NotificationKindError,
			RecipientEmail: caller.Email,
		})
		return nil, err
	}
	snapshot := cloneApps(s.apps)
	s.mu.Unlock()

	s.bus.Publish(snapshot)
	s.notify(ctx, domain.Notification{
		Title:          "Application submitted",
		Message:        fmt.Sprintf("Your application to %s has been submitted.", app.ClubName),
		Kind:           domain.NotificationKindSuccess,
		RecipientEmail: caller.Email,
	})
	result := app
	return &result, nil
}

// Approve transitions a pending application to APPROVED and records the
// review audit fields.
func (s *Store) Approve(ctx context.Context, caller domain.CurrentUser, id, feedback string) error {
	return s.review(ctx, caller, id, domain.ApplicationStatusApproved, feedback)
}

// Reject transitions a pending application to REJECTED and records the
// review audit fields.
func (s *Store) Reject(ctx context.Context, caller domain.CurrentUser, id, feedback string) error {
	return s.review(ctx, caller, id, domain.ApplicationStatusRejected, feedback)
}

func (s *Store) review(ctx context.Context, caller domain.CurrentUser, id string, status domain.ApplicationStatus, feedback string) error {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	if !authz.CanReview(caller, s.apps[idx]) {
		s.mu.Unlock()
		return ErrNotAuthorized
	}
	if s.apps[idx].Status != domain.ApplicationStatusPending {
		s.mu.Unlock()
		return ErrInvalidTransition
	}

	prev := s.apps
	next := cloneApps(s.apps)
	reviewedAt := s.now()
	next[idx].Status = status
	next[idx].ReviewedBy = caller.Name
	next[idx].ReviewedAt = &reviewedAt
	next[idx].Feedback = feedback
	s.apps = next
	if err := s.persistLocked(ctx); err != nil {
		s.apps = prev
		s.mu.Unlock()
		return err
	}
	reviewed := next[idx]
	snapshot := cloneApps(s.apps)
	s.mu.Unlock()

	s.bus.Publish(snapshot)
	verdict := "approved"
	kind := domain.NotificationKindSuccess
	if status == domain.ApplicationStatusRejected {
		verdict = "rejected"
		kind = domain.NotificationKindInfo
	}
	s.notify(ctx, domain.Notification{
		Title:          fmt.Sprintf("Application %s", verdict),
		Message:        fmt.Sprintf("Your application to %s was %s by %s.", reviewed.ClubName, verdict, caller.Name),
		Kind:           kind,
		RecipientEmail: reviewed.ApplicantEmail,
	})
	return nil
}

// Update amends content fields. Identity, status and audit fields are
// not reachable through this path.
func (s *Store) Update(ctx context.Context, caller domain.CurrentUser, id string, patch domain.ApplicationUpdate) error {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	if !authz.CanEdit(caller, s.apps[idx]) {
		s.mu.Unlock()
		return ErrNotAuthorized
	}

	prev := s.apps
	next := cloneApps(s.apps)
	if patch.Motivation != nil {
		next[idx].Motivation = *patch.Motivation
	}
	if patch.Experience != nil {
		next[idx].Experience = *patch.Experience
	}
	if patch.Skills != nil {
		next[idx].Skills = append([]string(nil), (*patch.Skills)...)
	}
	if patch.AdditionalInfo != nil {
		next[idx].AdditionalInfo = *patch.AdditionalInfo
	}
	s.apps = next
	if err := s.persistLocked(ctx); err != nil {
		s.apps = prev
		s.mu.Unlock()
		return err
	}
	snapshot := cloneApps(s.apps)
	s.mu.Unlock()

	s.bus.Publish(snapshot)
	return nil
}

// Delete removes an application outright. No tombstone is kept.
func (s *Store) Delete(ctx context.Context, caller domain.CurrentUser, id string) error {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	if !authz.CanDelete(caller, s.apps[idx]) {
		s.mu.Unlock()
		return ErrNotAuthorized
	}

	prev := s.apps
	next := cloneApps(s.apps)
	s.apps = append(next[:idx], next[idx+1:]...)
	if err := s.persistLocked(ctx); err != nil {
		s.apps = prev
		s.mu.Unlock()
		return err
	}
	snapshot := cloneApps(s.apps)
	s.mu.Unlock()

	s.bus.Publish(snapshot)
	return nil
}

// VisibleApplications returns the caller's authorization-filtered view
// of the collection, in insertion order. The raw collection is never
// exposed.
func (s *Store) VisibleApplications(caller domain.CurrentUser) []domain.Application {
	s.mu.Lock()
	defer s.mu.Unlock()
	visible := []domain.Application{}
	for _, a := range s.apps {
		if authz.CanView(caller, a) {
			visible = append(visible, cloneApp(a))
		}
	}
	return visible
}

// ByApplicant projects the caller's visible set down to one applicant.
// Filtering over the visible set, never the raw collection, keeps the
// projection from bypassing authorization.
func (s *Store) ByApplicant(caller domain.CurrentUser, applicantID string) []domain.Application {
	out := []domain.Application{}
	for _, a := range s.VisibleApplications(caller) {
		if a.ApplicantID == applicantID {
			out = append(out, a)
		}
	}
	return out
}

// ByClub projects the caller's visible set down to one club.
func (s *Store) ByClub(caller domain.CurrentUser, clubID string) []domain.Application {
	out := []domain.Application{}
	for _, a := range s.VisibleApplications(caller) {
		if a.ClubID == clubID {
			out = append(out, a)
		}
	}
	return out
}

func (s *Store) indexLocked(id string) int {
	for i, a := range s.apps {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(s.apps)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := s.blob.Write(ctx, s.key, data); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (s *Store) notify(ctx context.Context, n domain.Notification) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, n)
}

func cloneApp(a domain.Application) domain.Application {
	cp := a
	cp.Skills = append([]string(nil), a.Skills...)
	if a.ReviewedAt != nil {
		t := *a.ReviewedAt
		cp.ReviewedAt = &t
	}
	return cp
}

func cloneApps(apps []domain.Application) []domain.Application {
	out := make([]domain.Application, len(apps))
	for i, a := range apps {
		out[i] = cloneApp(a)
	}
	return out
}
