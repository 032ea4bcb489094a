package domain

// GuestID is the shared identity used when token verification is skipped
// or fails under the guest policy.
const GuestID = "guest"

// Identity is a previously verified caller.
type Identity struct {
	UserID string
	Name   string
	Guest  bool
}

func GuestIdentity() Identity {
	return Identity{UserID: GuestID, Name: "Guest", Guest: true}
}

// DisplayName falls back to a generic label when the provider gave none.
func (i Identity) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return "User"
}

type UserStats struct {
	RoomsJoined    int `json:"roomsJoined"`
	TasksCreated   int `json:"tasksCreated"`
	TasksCompleted int `json:"tasksCompleted"`
}
