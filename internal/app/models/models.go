package models

// RoleType represents the role of a user in the system
type RoleType string

const (
	// RoleStudent can browse the catalog, submit requests and return items
	RoleStudent RoleType = "student"
	// RoleMentor reviews requests and manages the component inventory
	RoleMentor RoleType = "mentor"
)

// IsValid reports whether the role is one of the known roles
func (r RoleType) IsValid() bool {
	return r == RoleStudent || r == RoleMentor
}

// RequestStatus represents the lifecycle state of a component request
type RequestStatus string

const (
	// StatusRequested is the sole initial state of a request
	StatusRequested RequestStatus = "Requested"
	// StatusApproved means stock has been reserved for the request
	StatusApproved RequestStatus = "Approved"
	// StatusRejected is terminal, no stock was ever reserved
	StatusRejected RequestStatus = "Rejected"
	// StatusReturned is terminal, reserved stock has been released
	StatusReturned RequestStatus = "Returned"
)

// IsValid reports whether the status is one of the known states
func (s RequestStatus) IsValid() bool {
	switch s {
	case StatusRequested, StatusApproved, StatusRejected, StatusReturned:
		return true
	}
	return false
}

// transitions is the closed transition table for the request lifecycle.
// Requested may move to Approved or Rejected; Approved may move to Returned.
// Rejected and Returned are terminal.
var transitions = map[RequestStatus][]RequestStatus{
	StatusRequested: {StatusApproved, StatusRejected},
	StatusApproved:  {StatusReturned},
	StatusRejected:  {},
	StatusReturned:  {},
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
