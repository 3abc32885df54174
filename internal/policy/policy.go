// Package policy decides whether a principal may read or write portal data.
//
// Decisions read three facts only: whether the principal is authenticated,
// whether its users record is approved, and whether its credential carries the
// admin claim. Directory fields that look like roles are never consulted.
package policy

import (
	"github.com/dimitrije/medportal-api/internal/apperr"
)

type Action string

const (
	ActionViewPublic       Action = "view_public"
	ActionViewGatedContent Action = "view_gated_content"
	ActionManageUsers      Action = "manage_users"
	ActionManageCourses    Action = "manage_courses"
)

var Actions = []Action{
	ActionViewPublic,
	ActionViewGatedContent,
	ActionManageUsers,
	ActionManageCourses,
}

// Subject is the authorization-relevant view of a request's principal.
// IsAdmin must come from the signed claim set.
type Subject struct {
	Authenticated bool
	Approved      bool
	IsAdmin       bool
}

type Reason string

const (
	ReasonAllowed         Reason = "allowed"
	ReasonUnauthenticated Reason = "unauthenticated"
	ReasonPending         Reason = "pending_approval"
	ReasonForbidden       Reason = "forbidden"
)

type Decision struct {
	Action  Action
	Allowed bool
	Reason  Reason
}

// Decide evaluates action for subject. It has no inputs besides its arguments.
func Decide(action Action, s Subject) Decision {
	switch action {
	case ActionViewPublic:
		return allow(action)

	case ActionViewGatedContent:
		if !s.Authenticated {
			return deny(action, ReasonUnauthenticated)
		}
		if !s.Approved {
			return deny(action, ReasonPending)
		}
		return allow(action)

	case ActionManageUsers, ActionManageCourses:
		if !s.Authenticated {
			return deny(action, ReasonUnauthenticated)
		}
		if s.IsAdmin {
			return allow(action)
		}
		if !s.Approved {
			return deny(action, ReasonPending)
		}
		return deny(action, ReasonForbidden)
	}

	return deny(action, ReasonForbidden)
}

// Err converts a denial into the matching error kind; nil when allowed.
func (d Decision) Err() error {
	op := "policy." + string(d.Action)
	switch d.Reason {
	case ReasonAllowed:
		return nil
	case ReasonUnauthenticated:
		return apperr.Unauthenticated(op, "unauthenticated", "sign in required")
	case ReasonPending:
		return apperr.PendingApproval(op)
	default:
		return apperr.Forbidden(op, "administrator access required")
	}
}

func allow(a Action) Decision { return Decision{Action: a, Allowed: true, Reason: ReasonAllowed} }

func deny(a Action, r Reason) Decision { return Decision{Action: a, Allowed: false, Reason: r} }

// Standing names the distinct states a subject can be in, for messaging.
type Standing string

const (
	StandingUnauthenticated Standing = "unauthenticated"
	StandingPending         Standing = "pending"
	StandingMember          Standing = "member"
	StandingAdmin           Standing = "admin"
	// StandingAdminPending holds the admin claim without an approved record:
	// management is allowed, gated content is not.
	StandingAdminPending Standing = "admin_pending"
)

func Classify(s Subject) Standing {
	switch {
	case !s.Authenticated:
		return StandingUnauthenticated
	case s.IsAdmin && s.Approved:
		return StandingAdmin
	case s.IsAdmin:
		return StandingAdminPending
	case s.Approved:
		return StandingMember
	default:
		return StandingPending
	}
}
