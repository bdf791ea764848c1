// Package command routes discrete command tokens from the voice/UI layer
// to core operations. The core exposes no text or audio surface of its
// own: the speech layer hands over a token, and unrecognized input comes
// through with its raw text intact for the caller to re-prompt.
package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gramseva/swasthya-sahayak/internal/model"
	"github.com/gramseva/swasthya-sahayak/internal/service/eligibility"
	"github.com/gramseva/swasthya-sahayak/internal/service/facility"
	"github.com/gramseva/swasthya-sahayak/internal/service/profile"
	"github.com/gramseva/swasthya-sahayak/internal/service/scheduler"
	apperrors "github.com/gramseva/swasthya-sahayak/pkg/errors"
	"github.com/gramseva/swasthya-sahayak/pkg/geo"
	"github.com/gramseva/swasthya-sahayak/pkg/logger"
)

type Token string

const (
	TokenFindHealthcare Token = "find-healthcare"
	TokenShowEmergency  Token = "show-emergency"
	TokenCheckScheme    Token = "check-scheme"
	TokenShowReminders  Token = "show-reminders"
	TokenUnknown        Token = "unknown"
)

// Command is one decoded instruction from the voice/UI layer.
type Command struct {
	Token    Token      `json:"token"`
	RawText  string     `json:"raw_text,omitempty"`
	District string     `json:"district,omitempty"`
	Position *geo.Point `json:"position,omitempty"`
	// ProfileID selects the profile for eligibility checks.
	ProfileID *uuid.UUID `json:"profile_id,omitempty"`
	// OwnerID selects the case for reminder listings.
	OwnerID *uuid.UUID `json:"owner_id,omitempty"`
}

// Result carries whichever payload the token produced.
type Result struct {
	Facilities   []model.RankedFacility    `json:"facilities,omitempty"`
	Contacts     []*model.EmergencyContact `json:"contacts,omitempty"`
	Eligibility  []model.EligibilityResult `json:"eligibility,omitempty"`
	Reminders    []*model.Reminder         `json:"reminders,omitempty"`
	Unrecognized string                    `json:"unrecognized,omitempty"`
}

type Dispatcher struct {
	facilities  *facility.Service
	eligibility *eligibility.Service
	scheduler   *scheduler.Service
	profiles    *profile.Service
	logger      *logger.Logger
	now         func() time.Time
}

func NewDispatcher(
	facilities *facility.Service,
	elig *eligibility.Service,
	sched *scheduler.Service,
	profiles *profile.Service,
	log *logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		facilities:  facilities,
		eligibility: elig,
		scheduler:   sched,
		profiles:    profiles,
		logger:      log.WithComponent("command"),
		now:         time.Now,
	}
}

// Dispatch executes the core operation the token names. Every path is
// local-only and independent of sync state.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) (*Result, error) {
	switch cmd.Token {
	case TokenFindHealthcare:
		filters := &model.FacilityFilters{District: cmd.District, Near: cmd.Position}
		facilities, err := d.facilities.FindCenters(ctx, filters)
		if err != nil {
			return nil, err
		}
		return &Result{Facilities: facilities}, nil

	case TokenShowEmergency:
		contacts, err := d.facilities.FindEmergencyContacts(ctx, cmd.District, "")
		if err != nil {
			return nil, err
		}
		return &Result{Contacts: contacts}, nil

	case TokenCheckScheme:
		if cmd.ProfileID == nil {
			return nil, apperrors.Validation("a profile id is required for scheme checks", nil)
		}
		p, err := d.profiles.Get(ctx, *cmd.ProfileID)
		if err != nil {
			return nil, err
		}
		results, err := d.eligibility.Evaluate(ctx, p)
		if err != nil {
			return nil, err
		}
		return &Result{Eligibility: results}, nil

	case TokenShowReminders:
		if cmd.OwnerID == nil {
			return nil, apperrors.Validation("an owner id is required for reminder listings", nil)
		}
		reminders, err := d.scheduler.GetUpcoming(ctx, *cmd.OwnerID, d.now())
		if err != nil {
			return nil, err
		}
		return &Result{Reminders: reminders}, nil

	case TokenUnknown:
		d.logger.Debug("unrecognized command", "raw_text", cmd.RawText)
		return &Result{Unrecognized: cmd.RawText}, nil
	}

	return nil, apperrors.Validation("unsupported command token", nil)
}
