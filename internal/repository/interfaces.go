package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gramseva/swasthya-sahayak/internal/model"
)

// All repository interfaces in one file.
//
// Writes to user-owned entities take an optional outbox entry that is
// persisted in the same transaction as the entity, so the mutation and
// its upload snapshot are atomic. A nil entry means the write originated
// from the sync download/conflict path and must not be re-uploaded.
type (
	// FacilityRepository stores HealthcareCenter reference data. Upsert is
	// reachable only from the sync download pass.
	FacilityRepository interface {
		Upsert(ctx context.Context, center *model.HealthcareCenter) error
		Get(ctx context.Context, id uuid.UUID) (*model.HealthcareCenter, error)
		List(ctx context.Context, filters *model.FacilityFilters) ([]*model.HealthcareCenter, error)
		Delete(ctx context.Context, id uuid.UUID) error
	}

	// EmergencyRepository stores EmergencyContact reference data.
	EmergencyRepository interface {
		Upsert(ctx context.Context, contact *model.EmergencyContact) error
		Get(ctx context.Context, id uuid.UUID) (*model.EmergencyContact, error)
		List(ctx context.Context, district string, serviceType model.EmergencyServiceType) ([]*model.EmergencyContact, error)
		Delete(ctx context.Context, id uuid.UUID) error
	}

	// SchemeRepository stores HealthScheme reference data. List returns
	// schemes in insertion (position) order, which the eligibility engine
	// preserves in its output.
	SchemeRepository interface {
		Upsert(ctx context.Context, scheme *model.HealthScheme) error
		Get(ctx context.Context, id uuid.UUID) (*model.HealthScheme, error)
		List(ctx context.Context) ([]*model.HealthScheme, error)
		Delete(ctx context.Context, id uuid.UUID) error
	}

	ProfileRepository interface {
		Put(ctx context.Context, profile *model.UserProfile, outbox *model.OutboxEntry) error
		Get(ctx context.Context, id uuid.UUID) (*model.UserProfile, error)
		Delete(ctx context.Context, id uuid.UUID, outbox *model.OutboxEntry) error
	}

	// CaseRepository stores pregnancy cases and child records. Deleting a
	// case cascades to its reminders and vaccination records.
	CaseRepository interface {
		PutPregnancy(ctx context.Context, c *model.PregnancyCase, outbox *model.OutboxEntry) error
		GetPregnancy(ctx context.Context, id uuid.UUID) (*model.PregnancyCase, error)
		ListPregnancies(ctx context.Context, userID *uuid.UUID) ([]*model.PregnancyCase, error)
		DeletePregnancy(ctx context.Context, id uuid.UUID, outbox *model.OutboxEntry) error

		PutChild(ctx context.Context, c *model.ChildRecord, outbox *model.OutboxEntry) error
		GetChild(ctx context.Context, id uuid.UUID) (*model.ChildRecord, error)
		ListChildren(ctx context.Context, userID *uuid.UUID) ([]*model.ChildRecord, error)
		DeleteChild(ctx context.Context, id uuid.UUID, outbox *model.OutboxEntry) error
	}

	ReminderRepository interface {
		Put(ctx context.Context, reminder *model.Reminder, outbox *model.OutboxEntry) error
		// PutBatch persists a freshly generated schedule and its outbox
		// entries in one transaction.
		PutBatch(ctx context.Context, reminders []*model.Reminder, entries []*model.OutboxEntry) error
		Get(ctx context.Context, id uuid.UUID) (*model.Reminder, error)
		ListByCase(ctx context.Context, caseID uuid.UUID) ([]*model.Reminder, error)
		// ListUpcoming returns non-completed reminders for the owner with
		// due date >= from, ordered by due date ascending.
		ListUpcoming(ctx context.Context, caseID uuid.UUID, from time.Time) ([]*model.Reminder, error)
	}

	VaccinationRepository interface {
		Put(ctx context.Context, record *model.VaccinationRecord, outbox *model.OutboxEntry) error
		PutBatch(ctx context.Context, records []*model.VaccinationRecord, entries []*model.OutboxEntry) error
		Get(ctx context.Context, id uuid.UUID) (*model.VaccinationRecord, error)
		ListByChild(ctx context.Context, childID uuid.UUID) ([]*model.VaccinationRecord, error)
	}

	// OutboxRepository is the append-only log of pending local mutations.
	OutboxRepository interface {
		Enqueue(ctx context.Context, entry *model.OutboxEntry) error
		// PeekBatch returns pending entries in enqueue order, up to maxSize.
		PeekBatch(ctx context.Context, maxSize int) ([]*model.OutboxEntry, error)
		// Ack removes entries after confirmed remote acceptance.
		Ack(ctx context.Context, ids []uuid.UUID) error
		BumpRetry(ctx context.Context, id uuid.UUID, lastError string) error
		Escalate(ctx context.Context, id uuid.UUID) error
		// ExpireSuperseded removes escalated entries for an entity enqueued
		// at or before asOf, once a later mutation for it was accepted.
		ExpireSuperseded(ctx context.Context, entityType model.EntityType, entityID uuid.UUID, asOf time.Time) error
		ListEscalated(ctx context.Context) ([]*model.OutboxEntry, error)
		PendingCount(ctx context.Context) (int, error)
	}

	// SyncStateRepository persists the sync checkpoint row.
	SyncStateRepository interface {
		Get(ctx context.Context) (*model.SyncState, error)
		Save(ctx context.Context, state *model.SyncState) error
	}
)
