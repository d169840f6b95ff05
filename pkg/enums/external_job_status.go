package enums

import "fmt"

// ExternalJobStatus tracks the lifecycle of work subcontracted to a partner.
type ExternalJobStatus string

const (
	ExternalJobStatusRequested  ExternalJobStatus = "requested"
	ExternalJobStatusOrdered    ExternalJobStatus = "ordered"
	ExternalJobStatusInProgress ExternalJobStatus = "in_progress"
	ExternalJobStatusDelivered  ExternalJobStatus = "delivered"
	ExternalJobStatusApproved   ExternalJobStatus = "approved"
	ExternalJobStatusCancelled  ExternalJobStatus = "cancelled"
)

var validExternalJobStatuses = []ExternalJobStatus{
	ExternalJobStatusRequested,
	ExternalJobStatusOrdered,
	ExternalJobStatusInProgress,
	ExternalJobStatusDelivered,
	ExternalJobStatusApproved,
	ExternalJobStatusCancelled,
}

func (e ExternalJobStatus) String() string {
	return string(e)
}

func (e ExternalJobStatus) IsValid() bool {
	for _, candidate := range validExternalJobStatuses {
		if candidate == e {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions leave this status.
func (e ExternalJobStatus) IsTerminal() bool {
	return e == ExternalJobStatusApproved || e == ExternalJobStatusCancelled
}

func ParseExternalJobStatus(value string) (ExternalJobStatus, error) {
	for _, candidate := range validExternalJobStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid external job status %q", value)
}
