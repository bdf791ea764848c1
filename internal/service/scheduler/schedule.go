package scheduler

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gramseva/swasthya-sahayak/internal/model"
)

// gestationDays is the full pregnancy term: the expected delivery date is
// treated as gestational week 40, so the computed start of pregnancy is
// EDD minus 280 days.
const gestationDays = 280

type pregnancyVisit struct {
	week  int
	rtype model.ReminderType
	title string
	desc  string
}

// Antenatal checkups, tetanus checkpoints, and postnatal visits at fixed
// week offsets from the computed pregnancy start. Weeks 42 and 48 fall
// after delivery.
var pregnancyVisits = []pregnancyVisit{
	{12, model.ReminderMaternalCheckup, "Antenatal checkup (week 12)", "First trimester checkup and registration"},
	{16, model.ReminderMaternalCheckup, "Antenatal checkup (week 16)", "Routine antenatal checkup"},
	{16, model.ReminderMaternalVaccination, "Tetanus vaccination (TT-1)", "First tetanus toxoid dose"},
	{20, model.ReminderMaternalCheckup, "Antenatal checkup (week 20)", "Anomaly scan window checkup"},
	{24, model.ReminderMaternalCheckup, "Antenatal checkup (week 24)", "Routine antenatal checkup"},
	{24, model.ReminderMaternalVaccination, "Tetanus vaccination (TT-2)", "Second tetanus toxoid dose"},
	{28, model.ReminderMaternalCheckup, "Antenatal checkup (week 28)", "Third trimester checkup"},
	{32, model.ReminderMaternalCheckup, "Antenatal checkup (week 32)", "Routine antenatal checkup"},
	{36, model.ReminderMaternalCheckup, "Antenatal checkup (week 36)", "Pre-delivery checkup"},
	{38, model.ReminderMaternalCheckup, "Antenatal checkup (week 38)", "Final antenatal checkup"},
	{42, model.ReminderMaternalCheckup, "Postnatal checkup (week 2 after delivery)", "Mother and newborn checkup"},
	{48, model.ReminderMaternalCheckup, "Postnatal checkup (week 8 after delivery)", "Postnatal recovery checkup"},
}

type vaccineBucket struct {
	// offset from birth date
	days   int
	months int
	years  int
	label  string
	doses  []string
}

// The national immunization buckets. The 16-24 month booster window is
// scheduled at its lower bound, 16 months, so the date is deterministic.
var vaccineBuckets = []vaccineBucket{
	{days: 0, label: "at birth", doses: []string{"BCG", "OPV-0", "HepB-1"}},
	{days: 42, label: "week 6", doses: []string{"DPT-1", "OPV-1", "HepB-2"}},
	{days: 70, label: "week 10", doses: []string{"DPT-2", "OPV-2"}},
	{days: 98, label: "week 14", doses: []string{"DPT-3", "OPV-3", "HepB-3"}},
	{months: 9, label: "month 9", doses: []string{"Measles-1", "Vitamin A-1"}},
	{months: 16, label: "month 16", doses: []string{"DPT-Booster-1", "OPV-Booster", "Measles-2"}},
	{years: 5, label: "year 5", doses: []string{"DT-Booster"}},
}

// BuildPregnancySchedule generates the fixed reminder sequence for one
// pregnancy case. Due dates are monotonically non-decreasing; the
// earliest is week 12 and the latest week 48 from the computed start.
func BuildPregnancySchedule(caseID uuid.UUID, expectedDelivery time.Time, now time.Time) []*model.Reminder {
	start := expectedDelivery.AddDate(0, 0, -gestationDays)

	reminders := make([]*model.Reminder, 0, len(pregnancyVisits))
	for _, visit := range pregnancyVisits {
		r := &model.Reminder{
			Type:        visit.rtype,
			CaseID:      caseID,
			Title:       visit.title,
			Description: visit.desc,
			DueDate:     start.AddDate(0, 0, visit.week*7),
		}
		r.ID = uuid.New()
		r.Touch(now)
		reminders = append(reminders, r)
	}

	sort.SliceStable(reminders, func(i, j int) bool {
		return reminders[i].DueDate.Before(reminders[j].DueDate)
	})
	return reminders
}

// BuildChildSchedule generates one VaccinationRecord plus one linked
// Reminder per scheduled dose. Doses in the same bucket share a due date.
func BuildChildSchedule(childID uuid.UUID, birthDate time.Time, now time.Time) ([]*model.Reminder, []*model.VaccinationRecord) {
	var (
		reminders []*model.Reminder
		records   []*model.VaccinationRecord
	)

	for _, bucket := range vaccineBuckets {
		due := birthDate.AddDate(bucket.years, bucket.months, bucket.days)
		for _, dose := range bucket.doses {
			record := &model.VaccinationRecord{
				ChildID:       childID,
				VaccineName:   dose,
				ScheduledDate: due,
			}
			record.ID = uuid.New()
			record.Touch(now)
			records = append(records, record)

			vaccID := record.ID
			r := &model.Reminder{
				Type:          model.ReminderChildVaccination,
				CaseID:        childID,
				Title:         fmt.Sprintf("%s vaccination (%s)", dose, bucket.label),
				Description:   fmt.Sprintf("%s dose due %s", dose, bucket.label),
				DueDate:       due,
				VaccinationID: &vaccID,
			}
			r.ID = uuid.New()
			r.Touch(now)
			reminders = append(reminders, r)
		}
	}
	return reminders, records
}
