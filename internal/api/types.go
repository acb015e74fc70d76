package api

import "github.com/goodtune/sitetime/internal/storage"

// Message actions accepted by POST /api/message.
const (
	ActionGetSiteData        = "getSiteData"
	ActionGetActiveTabDomain = "getActiveTabDomain"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// Message is a request on the viewer message channel.
type Message struct {
	Action string `json:"action"`
	Period string `json:"period,omitempty"`
}

// SiteDataResponse carries aggregated per-domain records.
type SiteDataResponse struct {
	Data storage.DaySet `json:"data"`
}

// DayResponse carries one date's records.
type DayResponse struct {
	Date string         `json:"date"`
	Data storage.DaySet `json:"data"`
}

// ActiveDomainResponse reports the focused domain; Domain is null when the
// focused tab is not tracked.
type ActiveDomainResponse struct {
	Domain *string `json:"domain"`
}

// TabActivatedRequest is the body of POST /api/events/activated.
type TabActivatedRequest struct {
	TabID int    `json:"tabId"`
	URL   string `json:"url"`
}

// TabUpdatedRequest is the body of POST /api/events/updated.
type TabUpdatedRequest struct {
	TabID  int    `json:"tabId"`
	Status string `json:"status"`
	Active bool   `json:"active"`
	URL    string `json:"url"`
}
