package planflow

import (
	"testing"

	"github.com/randalmurphal/planflow/team"
)

func sampleRoster() []team.Member {
	return []team.Member{
		{MemberID: 1, Name: "Priya", Designation: "Engineering Manager", Position: "head"},
		{MemberID: 2, Name: "Marcus", Designation: "Senior Backend Engineer"},
		{MemberID: 3, Name: "Jin", Designation: "Backend Engineer"},
		{MemberID: 4, Name: "Sofia", Designation: "Frontend Engineer"},
	}
}

func TestExpandPlanRoundRobin(t *testing.T) {
	tasks := &TaskOutput{TaskGroups: []TaskGroup{
		{Domain: "backend", Tasks: []Task{
			{TaskID: "b1", RequiredCapability: "backend", Status: TaskReady},
			{TaskID: "b2", RequiredCapability: "backend", Status: TaskReady},
			{TaskID: "b3", RequiredCapability: "backend", Status: TaskReady},
		}},
		{Domain: "frontend", Tasks: []Task{
			{TaskID: "f1", RequiredCapability: "frontend", Status: TaskReady},
		}},
	}}

	got := ExpandPlan(tasks, sampleRoster())
	if len(got) != 4 {
		t.Fatalf("assignments = %d, want 4", len(got))
	}

	// backend tasks rotate across the two backend engineers
	if got[0].Name != "Marcus" || got[1].Name != "Jin" || got[2].Name != "Marcus" {
		t.Errorf("backend rotation = %s, %s, %s", got[0].Name, got[1].Name, got[2].Name)
	}
	if got[3].Name != "Sofia" {
		t.Errorf("frontend task went to %s", got[3].Name)
	}
}

func TestExpandPlanSkipsBlockedTasks(t *testing.T) {
	tasks := &TaskOutput{TaskGroups: []TaskGroup{
		{Domain: "backend", Tasks: []Task{
			{TaskID: "b1", RequiredCapability: "backend", Status: TaskBlocked},
			{TaskID: "b2", RequiredCapability: "backend", Status: TaskReady},
		}},
	}}

	got := ExpandPlan(tasks, sampleRoster())
	if len(got) != 1 || got[0].TaskID != "b2" {
		t.Errorf("got = %+v", got)
	}
}

func TestExpandPlanFallbacks(t *testing.T) {
	tasks := &TaskOutput{TaskGroups: []TaskGroup{
		{Domain: "quality", Tasks: []Task{
			{TaskID: "q1", RequiredCapability: "qa", Status: TaskReady},
		}},
	}}

	// no qa on the roster: falls back to the backend group
	got := ExpandPlan(tasks, sampleRoster())
	if len(got) != 1 || got[0].Name != "Marcus" {
		t.Errorf("qa fallback = %+v", got)
	}

	// no qa and no backend either: falls back to the lead
	designOnly := []team.Member{
		{MemberID: 1, Name: "Lena", Designation: "Product Designer", Position: "lead"},
		{MemberID: 2, Name: "Omar", Designation: "Product Designer"},
	}
	got = ExpandPlan(tasks, designOnly)
	if len(got) != 1 || got[0].Name != "Lena" {
		t.Errorf("lead fallback = %+v", got)
	}

	// no lead at all: first member
	flat := []team.Member{{MemberID: 9, Name: "Ada", Designation: "Product Designer"}}
	got = ExpandPlan(tasks, flat)
	if len(got) != 1 || got[0].Name != "Ada" {
		t.Errorf("first-member fallback = %+v", got)
	}
}

func TestExpandPlanEmpty(t *testing.T) {
	if got := ExpandPlan(nil, sampleRoster()); got != nil {
		t.Errorf("nil tasks: %+v", got)
	}
	if got := ExpandPlan(&TaskOutput{}, nil); got != nil {
		t.Errorf("no members: %+v", got)
	}
}
