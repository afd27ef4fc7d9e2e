package activity

// ListActivityOptions provides filtering options for listing activity.
type ListActivityOptions struct {
	LeadID       *string
	Stage        string
	ActivityType *ActivityType
	Limit        int
	Offset       int
}
