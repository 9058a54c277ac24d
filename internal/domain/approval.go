package domain

// ApprovalStatus is the lifecycle state of a capital call or distribution.
type ApprovalStatus string

const (
	StatusDraft         ApprovalStatus = "draft"
	StatusPendingReview ApprovalStatus = "pending_review"
	StatusPendingCFO    ApprovalStatus = "pending_cfo"
	StatusApproved      ApprovalStatus = "approved"
	StatusRejected      ApprovalStatus = "rejected"
)

var validStatuses = map[ApprovalStatus]bool{
	StatusDraft:         true,
	StatusPendingReview: true,
	StatusPendingCFO:    true,
	StatusApproved:      true,
	StatusRejected:      true,
}

// IsValid checks if the status is one of the five defined states.
func (s ApprovalStatus) IsValid() bool {
	return validStatuses[s]
}

// IsTerminal reports whether no further transitions are possible.
func (s ApprovalStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ApprovalAction identifies a recorded transition.
type ApprovalAction string

const (
	ActionSubmitted        ApprovalAction = "submitted"
	ActionApproved         ApprovalAction = "approved"
	ActionCFOSubmitted     ApprovalAction = "cfo_submitted"
	ActionCFOApproved      ApprovalAction = "cfo_approved"
	ActionRejected         ApprovalAction = "rejected"
	ActionChangesRequested ApprovalAction = "changes_requested"
)

// transitions maps each status to the set of statuses reachable from it.
var transitions = map[ApprovalStatus][]ApprovalStatus{
	StatusDraft:         {StatusPendingReview},
	StatusPendingReview: {StatusPendingCFO, StatusApproved, StatusRejected, StatusDraft},
	StatusPendingCFO:    {StatusApproved, StatusRejected, StatusDraft},
	StatusApproved:      {},
	StatusRejected:      {},
}

// CanTransitionTo reports whether moving from s to next is a legal edge
// of the approval state machine.
func (s ApprovalStatus) CanTransitionTo(next ApprovalStatus) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// EntityType distinguishes the two approvable transaction kinds.
type EntityType string

const (
	EntityCapitalCall  EntityType = "capital_call"
	EntityDistribution EntityType = "distribution"
)

// IsValid checks if the entity type is known.
func (e EntityType) IsValid() bool {
	return e == EntityCapitalCall || e == EntityDistribution
}

// ApprovalSnapshot is the minimal persisted view the state machine needs
// before it mutates anything: current status and server-side ownership.
type ApprovalSnapshot struct {
	EntityType EntityType
	EntityID   string
	FundID     string
	Status     ApprovalStatus
	CreatedBy  string
}

// Authorize checks whether user may execute a transition on the snapshot.
// Admins act only on transactions they created; the CFO acts on any
// transaction and is the only role permitted at the pending_cfo stage.
func (s *ApprovalSnapshot) Authorize(user *User) error {
	if user == nil {
		return ErrUnauthorized
	}

	switch user.Role {
	case RoleCFO:
		return nil
	case RoleAdmin:
		if s.Status == StatusPendingCFO {
			return ErrCFORequired
		}
		if s.CreatedBy != user.ID {
			return ErrNotOwner
		}
		return nil
	case RoleViewer:
		return ErrInsufficientRole
	default:
		return ErrInsufficientRole
	}
}
