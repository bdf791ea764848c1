package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gramseva/swasthya-sahayak/internal/model"
	"github.com/gramseva/swasthya-sahayak/internal/repository"
	apperrors "github.com/gramseva/swasthya-sahayak/pkg/errors"
	"github.com/gramseva/swasthya-sahayak/pkg/validator"
)

// Applier writes remote copies into the local store. Reference records
// follow server-wins unconditionally; user-owned records come through
// here only when an upload was rejected in favor of a newer server copy.
// Downloaded payloads pass the same entity validation as local writes;
// the server is authoritative but not trusted to be well-formed.
// Every write passes a nil outbox entry: remote-originated state must
// never be re-uploaded.
type Applier struct {
	facilities   repository.FacilityRepository
	emergency    repository.EmergencyRepository
	schemes      repository.SchemeRepository
	profiles     repository.ProfileRepository
	cases        repository.CaseRepository
	reminders    repository.ReminderRepository
	vaccinations repository.VaccinationRepository
	validate     validator.Validator
}

func NewApplier(
	facilities repository.FacilityRepository,
	emergency repository.EmergencyRepository,
	schemes repository.SchemeRepository,
	profiles repository.ProfileRepository,
	cases repository.CaseRepository,
	reminders repository.ReminderRepository,
	vaccinations repository.VaccinationRepository,
	validate validator.Validator,
) *Applier {
	return &Applier{
		facilities:   facilities,
		emergency:    emergency,
		schemes:      schemes,
		profiles:     profiles,
		cases:        cases,
		reminders:    reminders,
		vaccinations: vaccinations,
		validate:     validate,
	}
}

// Apply overwrites the local copy with the server's, stamping the
// server-assigned timestamp.
func (a *Applier) Apply(ctx context.Context, record RemoteRecord) error {
	switch record.EntityType {
	case model.EntityHealthcareCenter:
		var center model.HealthcareCenter
		if err := a.decode(record, &center); err != nil {
			return err
		}
		center.LastUpdated = record.Timestamp
		return a.facilities.Upsert(ctx, &center)

	case model.EntityEmergencyContact:
		var contact model.EmergencyContact
		if err := a.decode(record, &contact); err != nil {
			return err
		}
		contact.LastUpdated = record.Timestamp
		return a.emergency.Upsert(ctx, &contact)

	case model.EntityHealthScheme:
		var scheme model.HealthScheme
		if err := a.decode(record, &scheme); err != nil {
			return err
		}
		scheme.LastUpdated = record.Timestamp
		return a.schemes.Upsert(ctx, &scheme)

	case model.EntityUserProfile:
		var profile model.UserProfile
		if err := a.decode(record, &profile); err != nil {
			return err
		}
		profile.LastUpdated = record.Timestamp
		return a.profiles.Put(ctx, &profile, nil)

	case model.EntityPregnancyCase:
		var c model.PregnancyCase
		if err := a.decode(record, &c); err != nil {
			return err
		}
		c.LastUpdated = record.Timestamp
		return a.cases.PutPregnancy(ctx, &c, nil)

	case model.EntityChildRecord:
		var c model.ChildRecord
		if err := a.decode(record, &c); err != nil {
			return err
		}
		c.LastUpdated = record.Timestamp
		return a.cases.PutChild(ctx, &c, nil)

	case model.EntityReminder:
		var reminder model.Reminder
		if err := a.decode(record, &reminder); err != nil {
			return err
		}
		reminder.LastUpdated = record.Timestamp
		return a.reminders.Put(ctx, &reminder, nil)

	case model.EntityVaccinationRecord:
		var v model.VaccinationRecord
		if err := a.decode(record, &v); err != nil {
			return err
		}
		v.LastUpdated = record.Timestamp
		return a.vaccinations.Put(ctx, &v, nil)
	}

	return fmt.Errorf("unknown entity type %q", record.EntityType)
}

// decode unmarshals a remote payload and checks entity invariants. Both
// failure modes are deterministic, so callers classify them as
// validation errors rather than retrying the record.
func (a *Applier) decode(record RemoteRecord, target interface{}) error {
	if err := json.Unmarshal(record.Payload, target); err != nil {
		return apperrors.Validation(
			fmt.Sprintf("failed to decode %s payload", record.EntityType), err)
	}
	return a.validate.Validate(target)
}
