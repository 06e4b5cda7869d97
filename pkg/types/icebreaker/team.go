package icebreaker

// TeamInstallInfo describes a team the bot is installed in. The document id is the team id.
type TeamInstallInfo struct {
	ID            string `bson:"_id" json:"id"`
	TeamID        string `bson:"teamId" json:"teamId"`
	TenantID      string `bson:"tenantId" json:"tenantId"`
	ServiceURL    string `bson:"serviceUrl" json:"serviceUrl"`
	InstallerName string `bson:"installerName,omitempty" json:"installerName,omitempty"`
	BotID         string `bson:"botId,omitempty" json:"botId,omitempty"`
	InstalledAt   int64  `bson:"installedAt,omitempty" json:"installedAt,omitempty"`
}

// DocumentID returns the id the record is stored and partitioned by.
func (t TeamInstallInfo) DocumentID() string {
	if t.ID != "" {
		return t.ID
	}
	return t.TeamID
}
