// Package schedule contains the pure business rules for schedule entries.
// Guards are pure functions that evaluate preconditions without side effects.
package schedule

import "fmt"

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// CompleteContext provides context for completion guards.
type CompleteContext struct {
	ScheduleID  string
	AssigneeID  string
	ActorID     string
	ActorActive bool
}

// AssignContext provides context for assignment guards.
type AssignContext struct {
	MemberID      string
	MemberActive  bool
	EligibleTasks int
	RemainingDays int
}

// CanComplete evaluates whether the actor may mark the entry done.
// Rules:
// - Actor must be an active member
// - Only the assignee completes their own entry
func CanComplete(ctx CompleteContext) GuardResult {
	if ctx.ActorID == "" || !ctx.ActorActive {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("member %s is not active", ctx.ActorID),
		}
	}

	if ctx.AssigneeID != ctx.ActorID {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("schedule %s is assigned to another member", ctx.ScheduleID),
		}
	}

	return GuardResult{Allowed: true}
}

// CanAssign evaluates whether a random placement can be attempted at all.
// A refusal here is a skip, not a failure.
// Rules:
// - Member must be active
// - At least one eligible task
// - At least one remaining day
func CanAssign(ctx AssignContext) GuardResult {
	if !ctx.MemberActive {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("member %s is not active", ctx.MemberID),
		}
	}

	if ctx.EligibleTasks == 0 {
		return GuardResult{Allowed: false, Reason: "no eligible tasks"}
	}

	if ctx.RemainingDays == 0 {
		return GuardResult{Allowed: false, Reason: "no remaining days"}
	}

	return GuardResult{Allowed: true}
}
