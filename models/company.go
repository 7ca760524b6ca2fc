package models

import "time"

// NotAvailable is the sentinel used for profile fields with no known value.
// The generator is instructed to never invent a fact, so "unknown" must be
// distinguishable from "empty" in every prompt.
const NotAvailable = "N/A"

// CompanyProfile is the static enrichment input for answer generation.
// Immutable during a single pipeline run.
type CompanyProfile struct {
	CompanyID      string    `bson:"company_id" json:"company_id"`
	Name           string    `bson:"name" json:"name"`
	Industry       string    `bson:"industry" json:"industry"`
	Services       string    `bson:"services" json:"services"`
	Mission        string    `bson:"mission" json:"mission"`
	Values         string    `bson:"values" json:"values"`
	PastProjects   string    `bson:"past_projects" json:"past_projects"`
	Certifications string    `bson:"certifications" json:"certifications"`
	TeamSize       string    `bson:"team_size" json:"team_size"`
	Founded        string    `bson:"founded" json:"founded"`
	Website        string    `bson:"website" json:"website"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
}

// UnknownCompanyProfile returns a profile with every field set to the
// NotAvailable sentinel. Used whenever the real profile cannot be loaded.
func UnknownCompanyProfile(companyID string) CompanyProfile {
	return CompanyProfile{
		CompanyID:      companyID,
		Name:           NotAvailable,
		Industry:       NotAvailable,
		Services:       NotAvailable,
		Mission:        NotAvailable,
		Values:         NotAvailable,
		PastProjects:   NotAvailable,
		Certifications: NotAvailable,
		TeamSize:       NotAvailable,
		Founded:        NotAvailable,
		Website:        NotAvailable,
	}
}

// Normalized returns a copy with every empty field replaced by the
// NotAvailable sentinel, so fields are explicit rather than omitted.
func (p CompanyProfile) Normalized() CompanyProfile {
	fill := func(s string) string {
		if s == "" {
			return NotAvailable
		}
		return s
	}
	p.Name = fill(p.Name)
	p.Industry = fill(p.Industry)
	p.Services = fill(p.Services)
	p.Mission = fill(p.Mission)
	p.Values = fill(p.Values)
	p.PastProjects = fill(p.PastProjects)
	p.Certifications = fill(p.Certifications)
	p.TeamSize = fill(p.TeamSize)
	p.Founded = fill(p.Founded)
	p.Website = fill(p.Website)
	return p
}
