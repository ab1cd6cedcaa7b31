package activity_test

import (
	"testing"
	"time"

	"github.com/anima-project/anima/internal/activity"
	"github.com/anima-project/anima/internal/domain"
)

func TestUpdateActiveOnRecentInteraction(t *testing.T) {
	now := time.Now()
	s := activity.Update(activity.Inputs{Now: now, LastInteractionAt: now.Add(-time.Minute)})
	if s.Level != domain.ActivityActive {
		t.Errorf("Level = %v, want active", s.Level)
	}
}

func TestUpdateDrowsyAfterThirtyMinutesIdle(t *testing.T) {
	now := time.Now()
	s := activity.Update(activity.Inputs{Now: now, LastInteractionAt: now.Add(-31 * time.Minute)})
	if s.Level != domain.ActivityDrowsy {
		t.Errorf("Level = %v, want drowsy", s.Level)
	}
}

func TestUpdateRestingAfterSixtyMinutesIdleAndDark(t *testing.T) {
	now := time.Now()
	s := activity.Update(activity.Inputs{
		Now: now, LastInteractionAt: now.Add(-61 * time.Minute),
		WorldLightLux: 5, IsNight: true,
	})
	if s.Level != domain.ActivityResting {
		t.Errorf("Level = %v, want resting", s.Level)
	}
}

func TestUpdateStaysDrowsyWhenIdleButNotDark(t *testing.T) {
	now := time.Now()
	s := activity.Update(activity.Inputs{
		Now: now, LastInteractionAt: now.Add(-61 * time.Minute),
		WorldLightLux: 500, IsNight: false,
	})
	if s.Level != domain.ActivityDrowsy {
		t.Errorf("Level = %v, want drowsy (daylight should prevent resting)", s.Level)
	}
}
