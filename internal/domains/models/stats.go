package models

import "time"

// RecentWindow is the look-back for Stats.RecentRegistrations.
const RecentWindow = 24 * time.Hour

// Stats summarizes the registry.
type Stats struct {
	TotalDomains        int `json:"total_domains"`
	TotalOwners         int `json:"total_users"`
	RecentRegistrations int `json:"recent_registrations"`
}
