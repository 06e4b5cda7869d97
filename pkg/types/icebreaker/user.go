package icebreaker

// UserInfo holds the pairing state of one user. The document id is the user id.
type UserInfo struct {
	ID         string          `bson:"_id" json:"id"`
	TenantID   string          `bson:"tenantId" json:"tenantId"`
	UserID     string          `bson:"userId" json:"userId"`
	ServiceURL string          `bson:"serviceUrl" json:"serviceUrl"`
	OptedIn    map[string]bool `bson:"optedIn" json:"optedIn"`
	Profile    string          `bson:"profile,omitempty" json:"profile,omitempty"`
}

// IsOptedIn reports whether the user actively participates in pairings of the team.
func (u UserInfo) IsOptedIn(teamID string) bool {
	return u.OptedIn[teamID]
}

// CopyOptedIn returns a copy of the opted-in map that is safe to modify. Never nil.
func (u UserInfo) CopyOptedIn() map[string]bool {
	optedIn := make(map[string]bool, len(u.OptedIn))
	for teamID, v := range u.OptedIn {
		optedIn[teamID] = v
	}
	return optedIn
}
