package icebreaker

// PairInfo is an immutable record of one pairing produced by a matching round.
type PairInfo struct {
	ID        string `bson:"_id" json:"id"`
	User1ID   string `bson:"user1Id" json:"user1Id"`
	User2ID   string `bson:"user2Id" json:"user2Id"`
	Iteration int    `bson:"iteration" json:"iteration"`
	CreatedAt int64  `bson:"createdAt" json:"createdAt"`
}

// Involves reports whether the user is one of the two paired users.
func (p PairInfo) Involves(userID string) bool {
	return p.User1ID == userID || p.User2ID == userID
}
