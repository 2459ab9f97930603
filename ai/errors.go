package ai

import "fmt"

// ConfigurationError means a required credential or setting is missing or
// unusable. It is raised before any network attempt and is never retried.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// UpstreamError carries a non-success HTTP status from a remote service
// along with whatever error message the upstream included.
type UpstreamError struct {
	Service string
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s request failed with status %d", e.Service, e.Status)
	}
	return fmt.Sprintf("%s request failed with status %d: %s", e.Service, e.Status, e.Message)
}

// MalformedResponse means the upstream replied 2xx but the body does not
// match the expected contract (e.g. no candidates, no text part).
type MalformedResponse struct {
	Service string
	Reason  string
}

func (e *MalformedResponse) Error() string {
	return fmt.Sprintf("malformed %s response: %s", e.Service, e.Reason)
}

// EmptyAudioError means speech synthesis succeeded but returned no payload
type EmptyAudioError struct{}

func (e *EmptyAudioError) Error() string {
	return "speech synthesis returned no audio content"
}
