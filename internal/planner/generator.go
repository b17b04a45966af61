package planner

import (
	"fmt"
	"sort"
	"time"

	"alcyxob/tricoach/internal/domain"

	"github.com/google/uuid"
)

// Duration floors, in minutes. Doubles are allowed shorter than primaries.
const (
	minPrimaryMinutes = 20
	minDoubleMinutes  = 15
)

// Weekly volume shaping across the plan. The ramp runs from rampFloor of the
// weekly budget up to the full budget, with every fourth week a recovery
// week and the final week a taper.
const (
	rampFloor          = 0.85
	recoveryWeekFactor = 0.70
	taperWeekFactor    = 0.55
)

// GeneratePlan builds a full multi-week plan from the athlete setup.
// Pure and deterministic: identical setups produce schedules with identical
// stable hashes and identical session-by-session projections.
//
// Infeasible constraint combinations are relaxed rather than rejected, in a
// fixed order: doubles are dropped first, then per-session durations are
// shaved, then trailing single sessions are dropped (the long session is
// always kept). Only malformed setups fail.
func GeneratePlan(setup domain.PlanSetup) (*domain.GeneratedPlan, error) {
	if err := validateSetup(setup); err != nil {
		return nil, err
	}

	// Derive the per-plan UUID namespace from the setup so session ids are
	// stable across runs but distinct across setups.
	setupHash, err := ComputeStableHash(setup)
	if err != nil {
		return nil, err
	}
	planNS := uuid.NewSHA1(uuid.NameSpaceOID, []byte("tricoach:plan:"+setupHash))

	days := scheduleDays(setup)
	longDay := pickLongDay(setup, days)
	intensityCap := intensityDayCap(setup, len(days))
	doublesCap := setup.MaxDoubles
	if doublesCap > len(days) {
		doublesCap = len(days)
	}

	weeks := make([]domain.PlanWeek, 0, setup.WeeksToEvent)
	for i := 0; i < setup.WeeksToEvent; i++ {
		weeks = append(weeks, buildWeek(setup, planNS, i, days, longDay, intensityCap, doublesCap))
	}

	plan := &domain.GeneratedPlan{
		Setup: setup,
		Weeks: weeks,
	}
	hash, err := ComputeStableHash(plan.Projection())
	if err != nil {
		return nil, err
	}
	plan.Hash = hash
	return plan, nil
}

func validateSetup(setup domain.PlanSetup) error {
	if setup.WeeksToEvent < 1 || setup.WeeksToEvent > 52 {
		return validationErr("weeksToEvent", "must be between 1 and 52")
	}
	if setup.WeeklyMinutes < 30 {
		return validationErr("weeklyMinutes", "must be at least 30")
	}
	if len(setup.AvailabilityDays) == 0 {
		return validationErr("availabilityDays", "at least one weekday is required")
	}
	switch setup.Emphasis {
	case domain.EmphasisBalanced, domain.EmphasisSwim, domain.EmphasisBike, domain.EmphasisRun:
	default:
		return validationErr("emphasis", fmt.Sprintf("unrecognized emphasis %q", setup.Emphasis))
	}
	switch setup.RiskTolerance {
	case domain.RiskLow, domain.RiskMed, domain.RiskHigh:
	default:
		return validationErr("riskTolerance", fmt.Sprintf("unrecognized risk tolerance %q", setup.RiskTolerance))
	}
	if setup.MaxIntensityDays < 0 {
		return validationErr("maxIntensityDays", "must not be negative")
	}
	if setup.MaxDoubles < 0 {
		return validationErr("maxDoubles", "must not be negative")
	}
	return nil
}

// scheduleDays returns the deduped availability days ordered by their
// position within the plan week (week-start convention).
func scheduleDays(setup domain.PlanSetup) []time.Weekday {
	seen := make(map[time.Weekday]bool)
	var days []time.Weekday
	for _, d := range setup.AvailabilityDays {
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	sort.Slice(days, func(i, j int) bool {
		return setup.DayOffset(days[i]) < setup.DayOffset(days[j])
	})
	return days
}

// pickLongDay returns the designated long-session day if it is available,
// otherwise the last available day of the week.
func pickLongDay(setup domain.PlanSetup, days []time.Weekday) time.Weekday {
	if setup.HasAvailability(setup.LongSessionDay) {
		return setup.LongSessionDay
	}
	return days[len(days)-1]
}

// intensityDayCap bounds intensity days by the athlete cap, the risk
// tolerance and the days actually available besides the long day.
func intensityDayCap(setup domain.PlanSetup, dayCount int) int {
	limit := setup.MaxIntensityDays
	risk := map[domain.RiskTolerance]int{domain.RiskLow: 1, domain.RiskMed: 2, domain.RiskHigh: 3}[setup.RiskTolerance]
	if risk < limit {
		limit = risk
	}
	if avail := dayCount - 1; avail < limit { // long day never carries intensity
		limit = avail
	}
	if limit < 0 {
		limit = 0
	}
	return limit
}

// weekKind classifies a week within the periodization.
type weekKind int

const (
	weekBuild weekKind = iota
	weekRecovery
	weekTaper
)

func classifyWeek(weekIndex, totalWeeks int) weekKind {
	if weekIndex == totalWeeks-1 && totalWeeks >= 3 {
		return weekTaper
	}
	if weekIndex%4 == 3 {
		return weekRecovery
	}
	return weekBuild
}

// weekBudget computes the target minutes for a week; never exceeds the
// weekly availability budget.
func weekBudget(setup domain.PlanSetup, weekIndex int, kind weekKind) int {
	denom := setup.WeeksToEvent - 1
	if denom < 1 {
		denom = 1
	}
	factor := rampFloor + (1.0-rampFloor)*float64(weekIndex)/float64(denom)
	switch kind {
	case weekRecovery:
		factor *= recoveryWeekFactor
	case weekTaper:
		factor = taperWeekFactor
	}
	return floor5(int(factor * float64(setup.WeeklyMinutes)))
}

// sessionDraft is a session being placed, before durations and ordinals
// are finalized.
type sessionDraft struct {
	day        time.Weekday
	slot       int // 0 = primary, 1 = double
	discipline domain.Discipline
	typ        domain.SessionType
	weight     float64
	note       string
	isLong     bool
	duration   int
}

// disciplineCycle is the weighted rotation primaries are drawn from.
func disciplineCycle(e domain.Emphasis) []domain.Discipline {
	switch e {
	case domain.EmphasisSwim:
		return []domain.Discipline{domain.DisciplineSwim, domain.DisciplineBike, domain.DisciplineSwim, domain.DisciplineRun}
	case domain.EmphasisBike:
		return []domain.Discipline{domain.DisciplineBike, domain.DisciplineSwim, domain.DisciplineBike, domain.DisciplineRun}
	case domain.EmphasisRun:
		return []domain.Discipline{domain.DisciplineRun, domain.DisciplineBike, domain.DisciplineRun, domain.DisciplineSwim}
	default:
		return []domain.Discipline{domain.DisciplineBike, domain.DisciplineRun, domain.DisciplineSwim}
	}
}

func longDiscipline(e domain.Emphasis) domain.Discipline {
	switch e {
	case domain.EmphasisSwim:
		return domain.DisciplineSwim
	case domain.EmphasisRun:
		return domain.DisciplineRun
	default:
		// Balanced plans put the long block on the bike.
		return domain.DisciplineBike
	}
}

func buildWeek(setup domain.PlanSetup, planNS uuid.UUID, weekIndex int, days []time.Weekday, longDay time.Weekday, intensityCap, doublesCap int) domain.PlanWeek {
	kind := classifyWeek(weekIndex, setup.WeeksToEvent)
	budget := weekBudget(setup, weekIndex, kind)
	cycle := disciplineCycle(setup.Emphasis)

	weekIntensity := intensityCap
	switch kind {
	case weekRecovery:
		weekIntensity = 0
	case weekTaper:
		if weekIntensity > 1 {
			weekIntensity = 1
		}
	}

	// Primaries: one per available day. The long day hosts the endurance
	// long session; the first weekIntensity non-long days carry intensity.
	var drafts []sessionDraft
	intensityPlaced := 0
	for k, day := range days {
		d := sessionDraft{day: day, slot: 0}
		switch {
		case day == longDay:
			d.typ = domain.SessionEndurance
			d.discipline = longDiscipline(setup.Emphasis)
			d.weight = 2.0
			d.note = "long session"
			d.isLong = true
		case intensityPlaced < weekIntensity:
			if (weekIndex+intensityPlaced)%2 == 0 {
				d.typ = domain.SessionTempo
			} else {
				d.typ = domain.SessionThreshold
			}
			d.discipline = cycle[(weekIndex+k)%len(cycle)]
			d.weight = 1.0
			intensityPlaced++
		case kind == weekRecovery:
			d.typ = domain.SessionRecovery
			d.discipline = cycle[(weekIndex+k)%len(cycle)]
			d.weight = 0.7
		default:
			d.typ = domain.SessionEndurance
			d.discipline = cycle[(weekIndex+k)%len(cycle)]
			d.weight = 1.3
		}
		drafts = append(drafts, d)
	}

	// Doubles: short recovery spins on the first doublesCap non-long days.
	// Skipped entirely in taper weeks.
	if kind != weekTaper {
		placed := 0
		for _, day := range days {
			if placed >= doublesCap || day == longDay {
				continue
			}
			double := sessionDraft{
				day:        day,
				slot:       1,
				typ:        domain.SessionRecovery,
				discipline: domain.DisciplineSwim,
				weight:     0.5,
			}
			if primaryDiscipline(drafts, day) == domain.DisciplineSwim {
				double.discipline = domain.DisciplineRun
			}
			drafts = append(drafts, double)
			placed++
		}
	}

	assignDurations(drafts, budget)
	drafts = relaxToBudget(drafts, budget)

	// Final ordering and identity: (day offset, slot) defines ordinals with
	// no gaps or collisions.
	sort.SliceStable(drafts, func(i, j int) bool {
		oi, oj := setup.DayOffset(drafts[i].day), setup.DayOffset(drafts[j].day)
		if oi != oj {
			return oi < oj
		}
		return drafts[i].slot < drafts[j].slot
	})

	week := domain.PlanWeek{WeekIndex: weekIndex}
	for ordinal, d := range drafts {
		id := uuid.NewSHA1(planNS, []byte(fmt.Sprintf("session:%d:%d", weekIndex, ordinal)))
		week.Sessions = append(week.Sessions, domain.PlanSession{
			ID:          id.String(),
			WeekIndex:   weekIndex,
			Ordinal:     ordinal,
			Day:         d.day,
			Discipline:  d.discipline,
			Type:        d.typ,
			DurationMin: d.duration,
			Notes:       d.note,
		})
		week.TotalMinutes += d.duration
	}
	return week
}

func primaryDiscipline(drafts []sessionDraft, day time.Weekday) domain.Discipline {
	for _, d := range drafts {
		if d.day == day && d.slot == 0 {
			return d.discipline
		}
	}
	return ""
}

// assignDurations splits the week budget across drafts proportionally to
// their weights, on a 5-minute grid, with per-slot floors.
func assignDurations(drafts []sessionDraft, budget int) {
	var sumW float64
	for _, d := range drafts {
		sumW += d.weight
	}
	for i := range drafts {
		dur := floor5(int(float64(budget) * drafts[i].weight / sumW))
		floor := minPrimaryMinutes
		if drafts[i].slot == 1 {
			floor = minDoubleMinutes
		}
		if dur < floor {
			dur = floor
		}
		drafts[i].duration = dur
	}
}

// relaxToBudget enforces the weekly budget as a hard ceiling, relaxing in a
// fixed order: drop doubles, shave the longest non-long sessions, shave the
// long session, then drop trailing primaries (never the long session).
func relaxToBudget(drafts []sessionDraft, budget int) []sessionDraft {
	total := func() int {
		t := 0
		for _, d := range drafts {
			t += d.duration
		}
		return t
	}

	// 1. Drop doubles, last placed first.
	for total() > budget {
		dropped := false
		for i := len(drafts) - 1; i >= 0; i-- {
			if drafts[i].slot == 1 {
				drafts = append(drafts[:i], drafts[i+1:]...)
				dropped = true
				break
			}
		}
		if !dropped {
			break
		}
	}

	// 2. Shave longest sessions in 5-minute steps down to the floor,
	// preferring non-long sessions so the long day keeps the longest block.
	shave := func(includeLong bool, floor int) bool {
		best := -1
		for i, d := range drafts {
			if d.isLong && !includeLong {
				continue
			}
			if d.duration-5 < floor {
				continue
			}
			if best == -1 || d.duration > drafts[best].duration {
				best = i
			}
		}
		if best == -1 {
			return false
		}
		drafts[best].duration -= 5
		return true
	}
	for total() > budget && shave(false, minPrimaryMinutes) {
	}
	for total() > budget && shave(true, minPrimaryMinutes) {
	}
	for total() > budget && shave(true, 5) {
	}

	// 3. Last resort for very small budgets: drop trailing primaries.
	for total() > budget && len(drafts) > 1 {
		idx := -1
		for i := len(drafts) - 1; i >= 0; i-- {
			if !drafts[i].isLong {
				idx = i
				break
			}
		}
		if idx == -1 {
			break
		}
		drafts = append(drafts[:idx], drafts[idx+1:]...)
	}
	return drafts
}

func floor5(v int) int {
	return v - v%5
}
