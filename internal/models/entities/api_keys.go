package entities

// ApiKey is an integration key issued to a chamber.
type ApiKey struct {
	ApiKey    string `db:"id"`
	ChamberID string `db:"chamber_id"`
	Status    bool   `db:"status"`
}
