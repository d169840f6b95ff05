package enums

import "fmt"

// ExternalJobRequestMode distinguishes how a partner job was requested.
type ExternalJobRequestMode string

const (
	// ExternalJobRequestModeManual means the requesting user entered the
	// partner's data directly.
	ExternalJobRequestModeManual ExternalJobRequestMode = "manual"
	// ExternalJobRequestModePartnerPortal means a secure link was issued and
	// the partner fills in the response fields asynchronously.
	ExternalJobRequestModePartnerPortal ExternalJobRequestMode = "partner_portal"
)

var validExternalJobRequestModes = []ExternalJobRequestMode{
	ExternalJobRequestModeManual,
	ExternalJobRequestModePartnerPortal,
}

func (e ExternalJobRequestMode) String() string {
	return string(e)
}

func (e ExternalJobRequestMode) IsValid() bool {
	for _, candidate := range validExternalJobRequestModes {
		if candidate == e {
			return true
		}
	}
	return false
}

func ParseExternalJobRequestMode(value string) (ExternalJobRequestMode, error) {
	for _, candidate := range validExternalJobRequestModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid external job request mode %q", value)
}
