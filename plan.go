package planflow

import (
	"github.com/randalmurphal/planflow/team"
)

// MemberAssignment maps one task to a concrete team member.
type MemberAssignment struct {
	TaskID     string `json:"task_id"`
	MemberID   int    `json:"member_id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Capability string `json:"capability"`
}

// ExpandPlan turns capability-level assignments into member-level ones by
// round-robining each capability's tasks across the members who carry it.
// Blocked tasks are skipped. Tasks whose capability no member covers fall
// back to the backend group, then to the team lead, then to the first
// member of the roster.
func ExpandPlan(tasks *TaskOutput, members []team.Member) []MemberAssignment {
	if tasks == nil || len(members) == 0 {
		return nil
	}

	groups := team.GroupByCapability(members)
	cursor := make(map[string]int)

	var out []MemberAssignment
	for _, t := range tasks.Tasks() {
		if t.Status == TaskBlocked {
			continue
		}

		capability := t.RequiredCapability
		pool := groups[capability]
		if len(pool) == 0 {
			pool = groups["backend"]
		}
		if len(pool) == 0 {
			pool = []team.Member{fallbackMember(members)}
		}

		m := pool[cursor[capability]%len(pool)]
		cursor[capability]++

		out = append(out, MemberAssignment{
			TaskID:     t.TaskID,
			MemberID:   m.MemberID,
			Name:       m.Name,
			Email:      m.Email,
			Capability: capability,
		})
	}
	return out
}

// fallbackMember prefers the team lead as the catch-all owner.
func fallbackMember(members []team.Member) team.Member {
	for _, m := range members {
		if m.IsLead() {
			return m
		}
	}
	return members[0]
}
