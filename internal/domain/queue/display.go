package queue

var priorityLabels = map[Priority]string{
	PriorityCritical:   "Critical",
	PriorityUrgent:     "Urgent",
	PrioritySemiUrgent: "Semi-urgent",
	PriorityNonUrgent:  "Non-urgent",
}

var statusLabels = map[Status]string{
	StatusWaiting:    "Waiting",
	StatusInProgress: "In progress",
	StatusCompleted:  "Completed",
	StatusCancelled:  "Cancelled",
}

// PriorityLabel returns the board label for p, or p itself when unmapped.
func PriorityLabel(p Priority) string {
	if l, ok := priorityLabels[p]; ok {
		return l
	}
	return string(p)
}

// StatusLabel returns the board label for s, or s itself when unmapped.
func StatusLabel(s Status) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}
