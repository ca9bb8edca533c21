package domain

import (
	"testing"
	"time"
)

func TestDueMilestoneExactMatchOnly(t *testing.T) {
	cal := NewCalendar(DefaultStageTable(), 0)

	for elapsed := 0; elapsed <= 110; elapsed++ {
		m := cal.DueMilestone(ServiceTypeHundredDays, elapsed)

		inSet := false
		for _, day := range []int{14, 28, 42, 56, 70, 84, 100} {
			if elapsed == day {
				inSet = true
			}
		}

		if inSet && m == nil {
			t.Errorf("elapsed=%d: expected a due milestone, got nil", elapsed)
		}
		if !inSet && m != nil {
			t.Errorf("elapsed=%d: expected no milestone, got %q", elapsed, m.FollowUpType)
		}
		if m != nil && m.Days != elapsed {
			t.Errorf("elapsed=%d: milestone day mismatch: %d", elapsed, m.Days)
		}
	}
}

func TestDueMilestoneFollowUpTypeAndFinal(t *testing.T) {
	cal := NewCalendar(DefaultStageTable(), 0)

	m := cal.DueMilestone(ServiceTypeHundredDays, 14)
	if m == nil || m.FollowUpType != "14_day" {
		t.Fatalf("expected 14_day milestone, got %+v", m)
	}
	if m.Final {
		t.Fatalf("day 14 must not be final")
	}

	m = cal.DueMilestone(ServiceTypeHundredDays, 100)
	if m == nil || m.FollowUpType != "100_day" {
		t.Fatalf("expected 100_day milestone, got %+v", m)
	}
	if !m.Final {
		t.Fatalf("day 100 must be final")
	}
}

func TestDueMilestoneCatchUpWindow(t *testing.T) {
	cal := NewCalendar(DefaultStageTable(), 3)

	cases := []struct {
		elapsed int
		want    string
	}{
		{13, ""},
		{14, "14_day"},
		{16, "14_day"},
		{17, "14_day"},
		{18, ""},
		{101, "100_day"},
	}

	for _, tc := range cases {
		m := cal.DueMilestone(ServiceTypeHundredDays, tc.elapsed)
		got := ""
		if m != nil {
			got = m.FollowUpType
		}
		if got != tc.want {
			t.Errorf("elapsed=%d: got %q, want %q", tc.elapsed, got, tc.want)
		}
	}
}

func TestUpcomingReminderFiresTwoDaysAhead(t *testing.T) {
	cal := NewCalendar(DefaultStageTable(), 0)

	m := cal.UpcomingReminder(ServiceTypeHundredDays, 12)
	if m == nil || m.FollowUpType != "14_day" {
		t.Fatalf("elapsed=12: expected 14_day reminder, got %+v", m)
	}

	for _, elapsed := range []int{11, 13, 14} {
		if m := cal.UpcomingReminder(ServiceTypeHundredDays, elapsed); m != nil {
			t.Errorf("elapsed=%d: expected no reminder, got %q", elapsed, m.FollowUpType)
		}
	}
}

func TestSingleConsultationMilestoneSet(t *testing.T) {
	cal := NewCalendar(DefaultStageTable(), 0)

	if m := cal.DueMilestone(ServiceTypeSingleConsultation, 14); m == nil || m.FollowUpType != "14_day" {
		t.Fatalf("expected 14_day milestone for single consultation, got %+v", m)
	}
	if m := cal.DueMilestone(ServiceTypeSingleConsultation, 100); m != nil {
		t.Fatalf("single consultation has no 100 day milestone, got %+v", m)
	}
}

func TestElapsedDaysUsesDateSubtraction(t *testing.T) {
	start := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
	now := time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC)

	if got := ElapsedDays(start, now); got != 1 {
		t.Fatalf("expected 1 elapsed day across midnight, got %d", got)
	}

	now = time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	if got := ElapsedDays(start, now); got != 14 {
		t.Fatalf("expected 14 elapsed days, got %d", got)
	}
}
